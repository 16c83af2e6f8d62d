package bufcursor

import (
	"bytes"
	"encoding/binary"
	"math"
	"unsafe"
)

// RawView is a positional window over a contiguous byte region. The region
// is either engine memory returned by a cursor positioning call or the
// backing array of a ScratchBuffer; Wrap re-points the view without copying.
//
// Every accessor checks that [pos, pos+width) lies inside the region and
// panics with a *BoundsError when it does not. A RawView is not safe for
// concurrent use.
type RawView struct {
	buf []byte
}

// WrapView returns a view over b.
func WrapView(b []byte) RawView {
	return RawView{buf: b}
}

// Wrap re-points the view at b.
func (v *RawView) Wrap(b []byte) {
	v.buf = b
}

// Len returns the length of the wrapped region.
func (v RawView) Len() int { return len(v.buf) }

// Bytes returns the wrapped region itself. Writing to it writes through to
// whatever memory the view currently aliases.
func (v RawView) Bytes() []byte { return v.buf }

// Addr returns the address of the first byte, or 0 for an empty view.
func (v RawView) Addr() uintptr {
	if len(v.buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(v.buf)))
}

func (v RawView) check(pos, width int) {
	if pos < 0 || width < 0 || pos > len(v.buf)-width {
		panic(&BoundsError{Pos: pos, Width: width, Len: len(v.buf)})
	}
}

// Byte returns the byte at pos.
func (v RawView) Byte(pos int) byte {
	v.check(pos, 1)
	return v.buf[pos]
}

// PutByte stores b at pos.
func (v RawView) PutByte(pos int, b byte) {
	v.check(pos, 1)
	v.buf[pos] = b
}

// Int8 returns the byte at pos as a signed 8-bit integer.
func (v RawView) Int8(pos int) int8 {
	return int8(v.Byte(pos))
}

// PutInt8 stores n at pos.
func (v RawView) PutInt8(pos int, n int8) {
	v.PutByte(pos, byte(n))
}

// Uint16 decodes an unsigned 16-bit integer at pos.
func (v RawView) Uint16(pos int, order binary.ByteOrder) uint16 {
	v.check(pos, 2)
	return order.Uint16(v.buf[pos:])
}

// PutUint16 encodes n at pos.
func (v RawView) PutUint16(pos int, n uint16, order binary.ByteOrder) {
	v.check(pos, 2)
	order.PutUint16(v.buf[pos:], n)
}

// Uint32 decodes an unsigned 32-bit integer at pos.
func (v RawView) Uint32(pos int, order binary.ByteOrder) uint32 {
	v.check(pos, 4)
	return order.Uint32(v.buf[pos:])
}

// PutUint32 encodes n at pos.
func (v RawView) PutUint32(pos int, n uint32, order binary.ByteOrder) {
	v.check(pos, 4)
	order.PutUint32(v.buf[pos:], n)
}

// Int32 decodes a signed 32-bit integer at pos.
func (v RawView) Int32(pos int, order binary.ByteOrder) int32 {
	return int32(v.Uint32(pos, order))
}

// PutInt32 encodes n at pos.
func (v RawView) PutInt32(pos int, n int32, order binary.ByteOrder) {
	v.PutUint32(pos, uint32(n), order)
}

// Int64 decodes a signed 64-bit integer at pos.
func (v RawView) Int64(pos int, order binary.ByteOrder) int64 {
	v.check(pos, 8)
	return int64(order.Uint64(v.buf[pos:]))
}

// PutInt64 encodes n at pos.
func (v RawView) PutInt64(pos int, n int64, order binary.ByteOrder) {
	v.check(pos, 8)
	order.PutUint64(v.buf[pos:], uint64(n))
}

// Float32 decodes an IEEE-754 single at pos.
func (v RawView) Float32(pos int, order binary.ByteOrder) float32 {
	return math.Float32frombits(v.Uint32(pos, order))
}

// PutFloat32 encodes f at pos.
func (v RawView) PutFloat32(pos int, f float32, order binary.ByteOrder) {
	v.PutUint32(pos, math.Float32bits(f), order)
}

// Float64 decodes an IEEE-754 double at pos.
func (v RawView) Float64(pos int, order binary.ByteOrder) float64 {
	return math.Float64frombits(uint64(v.Int64(pos, order)))
}

// PutFloat64 encodes f at pos.
func (v RawView) PutFloat64(pos int, f float64, order binary.ByteOrder) {
	v.PutInt64(pos, int64(math.Float64bits(f)), order)
}

// CopyBytes copies len(dst) bytes starting at pos into dst.
func (v RawView) CopyBytes(pos int, dst []byte) {
	v.check(pos, len(dst))
	copy(dst, v.buf[pos:])
}

// Slice returns the n bytes at pos without copying.
func (v RawView) Slice(pos, n int) []byte {
	v.check(pos, n)
	return v.buf[pos : pos+n : pos+n]
}

// PutBytes copies src into the view at pos.
func (v RawView) PutBytes(pos int, src []byte) {
	v.check(pos, len(src))
	copy(v.buf[pos:], src)
}

// PutView copies the first n bytes of src into the view at pos.
func (v RawView) PutView(pos int, src RawView, n int) {
	src.check(0, n)
	v.check(pos, n)
	copy(v.buf[pos:pos+n], src.buf[:n])
}

// String decodes a NUL terminated UTF-8 string at pos. Decoding stops at
// the first NUL byte or at the end of the view; the bytes are copied. A
// string written with an embedded NUL reads back truncated there.
func (v RawView) String(pos int) ByteString {
	v.check(pos, 0)
	b := v.buf[pos:]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return NewByteStringBytes(bytes.Clone(b))
}

// PutString encodes s at pos followed by a NUL terminator and returns the
// number of bytes written (s.Size()+1).
func (v RawView) PutString(pos int, s ByteString) int {
	b := s.Bytes()
	n := len(b) + 1
	v.check(pos, n)
	copy(v.buf[pos:], b)
	v.buf[pos+len(b)] = 0
	return n
}
