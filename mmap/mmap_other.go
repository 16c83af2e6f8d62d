//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly || windows)

package mmap

// Anon falls back to heap memory on platforms without anonymous mappings.
func Anon(length int) (*Map, error) {
	if length <= 0 {
		return nil, ErrInvalidSize
	}
	return &Map{data: make([]byte, length), size: int64(length)}, nil
}

// Close releases the region.
func (m *Map) Close() error {
	m.data = nil
	m.size = 0
	return nil
}

// Grow resizes the region to newSize bytes. The first keep bytes survive.
func (m *Map) Grow(newSize int64, keep int) error {
	if err := checkGrow(m, newSize, keep); err != nil {
		return err
	}
	newData := make([]byte, newSize)
	copy(newData, m.data[:keep])
	m.data = newData
	m.size = newSize
	return nil
}
