// Package mmap provides anonymous, page-aligned memory regions allocated
// outside the Go heap. They back "direct" scratch buffers whose address
// stays stable and can be handed to native engines.
package mmap

// Map represents an anonymous memory region.
// This type wraps platform-specific allocation calls.
type Map struct {
	data []byte // Mapped memory region
	size int64  // Current mapped size
}

// Data returns the mapped byte slice.
func (m *Map) Data() []byte {
	return m.data
}

// Size returns the current mapped size.
func (m *Map) Size() int64 {
	return m.size
}

// Error represents an mmap error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return "mmap: " + e.Op + ": " + e.Err.Error()
	}
	return "mmap: " + e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrInvalidSize  = &Error{Op: "invalid size"}
	ErrInvalidRange = &Error{Op: "invalid range"}
	ErrNotMapped    = &Error{Op: "not mapped"}
)

func checkGrow(m *Map, newSize int64, keep int) error {
	if m.data == nil {
		return ErrNotMapped
	}
	if newSize <= 0 {
		return ErrInvalidSize
	}
	if keep < 0 || int64(keep) > m.size || int64(keep) > newSize {
		return ErrInvalidRange
	}
	return nil
}
