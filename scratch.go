package bufcursor

import (
	"github.com/Giulio2002/bufcursor/mmap"
)

// ScratchBuffer is caller-owned memory that composed keys and values are
// staged in before a commit. It tracks a write offset and grows by
// doubling; growth preserves only the bytes written so far.
//
// Heap buffers live in the Go heap. Direct buffers live in anonymous
// mappings outside it, so their address is stable between growths and the
// garbage collector never scans them.
type ScratchBuffer struct {
	buf    []byte
	off    int
	limit  int64
	region *mmap.Map // nil for heap buffers or empty direct buffers
	direct bool
	pooled bool
}

// NewScratchBuffer allocates a heap scratch buffer of the given capacity.
func NewScratchBuffer(capacity int) (*ScratchBuffer, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	return &ScratchBuffer{buf: make([]byte, capacity), limit: MaxScratchSize}, nil
}

// NewDirectScratchBuffer allocates a scratch buffer in an anonymous memory
// mapping. Release must be called to return the memory.
func NewDirectScratchBuffer(capacity int) (*ScratchBuffer, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	s := &ScratchBuffer{limit: MaxScratchSize, direct: true}
	if capacity > 0 {
		region, err := mmap.Anon(capacity)
		if err != nil {
			return nil, WrapError(ErrProblem, err)
		}
		s.region = region
		s.buf = region.Data()
	}
	return s, nil
}

func checkCapacity(capacity int) error {
	if capacity < 0 || int64(capacity) > MaxScratchSize {
		return errorf(ErrInvalidArgument, "scratch capacity %d out of range [0, %d]", capacity, MaxScratchSize)
	}
	return nil
}

// keyBufPool recycles heap key buffers of the default key size between
// cursors.
var keyBufPool = make(chan []byte, 128)

func newKeyScratch(size int, direct bool) (*ScratchBuffer, error) {
	var (
		s   *ScratchBuffer
		err error
	)
	switch {
	case direct:
		s, err = NewDirectScratchBuffer(size)
	case size == MaxKeySize:
		select {
		case b := <-keyBufPool:
			s = &ScratchBuffer{buf: b, limit: MaxScratchSize}
		default:
			s, err = NewScratchBuffer(size)
		}
		if s != nil {
			s.pooled = true
		}
	default:
		s, err = NewScratchBuffer(size)
	}
	if err != nil {
		return nil, err
	}
	if err := s.SetLimit(int64(size)); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// Cap returns the current capacity.
func (s *ScratchBuffer) Cap() int { return len(s.buf) }

// Offset returns the write offset: the number of bytes staged so far.
func (s *ScratchBuffer) Offset() int { return s.off }

// Direct reports whether the buffer lives outside the Go heap.
func (s *ScratchBuffer) Direct() bool { return s.direct }

// Limit returns the capacity the buffer may grow to.
func (s *ScratchBuffer) Limit() int64 { return s.limit }

// SetLimit lowers or raises the growth ceiling. It cannot go below the
// current capacity or above MaxScratchSize.
func (s *ScratchBuffer) SetLimit(n int64) error {
	if n < int64(len(s.buf)) || n > MaxScratchSize {
		return errorf(ErrInvalidArgument, "scratch limit %d out of range [%d, %d]", n, len(s.buf), MaxScratchSize)
	}
	s.limit = n
	return nil
}

// Bytes returns the whole backing region, written or not.
func (s *ScratchBuffer) Bytes() []byte { return s.buf }

// Written returns the staged prefix [0, Offset()).
func (s *ScratchBuffer) Written() []byte { return s.buf[:s.off] }

// Reset rewinds the write offset. The contents are left in place.
func (s *ScratchBuffer) Reset() { s.off = 0 }

// Advance moves the write offset forward by n bytes.
func (s *ScratchBuffer) Advance(n int) {
	if n < 0 || n > len(s.buf)-s.off {
		panic(&BoundsError{Pos: s.off, Width: n, Len: len(s.buf)})
	}
	s.off += n
}

// EnsureWritable guarantees at least n bytes of room after the write
// offset. When growth is needed the capacity doubles, starting from
// max(Cap(), 1), until the staged bytes plus n fit. The buffer never grows
// past Limit(); a request that would need more fails with a
// capacity-exceeded error and leaves the buffer untouched.
func (s *ScratchBuffer) EnsureWritable(n int) error {
	if n < 0 {
		return errorf(ErrInvalidArgument, "negative write width %d", n)
	}
	if len(s.buf)-s.off >= n {
		return nil
	}
	need := int64(s.off) + int64(n)
	if need > s.limit {
		return errorf(ErrBadValSize, "scratch buffer needs %d bytes, limit is %d", need, s.limit)
	}
	newCap := int64(max(len(s.buf), 1))
	for newCap < need {
		newCap <<= 1
	}
	if newCap > s.limit {
		newCap = s.limit
	}
	return s.grow(newCap)
}

func (s *ScratchBuffer) grow(newCap int64) error {
	if !s.direct {
		nb := make([]byte, newCap)
		copy(nb, s.buf[:s.off])
		s.buf = nb
		s.pooled = false
		return nil
	}
	if s.region == nil {
		region, err := mmap.Anon(int(newCap))
		if err != nil {
			return WrapError(ErrProblem, err)
		}
		s.region = region
		s.buf = region.Data()
		return nil
	}
	if err := s.region.Grow(newCap, s.off); err != nil {
		return WrapError(ErrProblem, err)
	}
	s.buf = s.region.Data()
	return nil
}

// Release returns the backing memory. Direct regions are unmapped; default
// sized heap key buffers go back to a pool. The buffer is empty afterwards.
func (s *ScratchBuffer) Release() error {
	var err error
	switch {
	case s.region != nil:
		if cerr := s.region.Close(); cerr != nil {
			err = WrapError(ErrProblem, cerr)
		}
		s.region = nil
	case s.pooled && len(s.buf) == MaxKeySize:
		select {
		case keyBufPool <- s.buf:
		default:
			// Pool is full, let GC handle it
		}
	}
	s.buf = nil
	s.off = 0
	s.pooled = false
	return err
}
