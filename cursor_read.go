package bufcursor

import "bytes"

// Readers decode at an absolute position in the current view, whichever
// memory it points at. Out of range positions panic with *BoundsError.

// KeyByte returns the key byte at pos.
func (c *BufferCursor) KeyByte(pos int) byte { return c.key.view.Byte(pos) }

// KeyInt8 returns the key byte at pos as a signed integer.
func (c *BufferCursor) KeyInt8(pos int) int8 { return c.key.view.Int8(pos) }

// KeyInt32 decodes a big-endian 32-bit integer from the key.
func (c *BufferCursor) KeyInt32(pos int) int32 { return c.key.view.Int32(pos, ByteOrder) }

// KeyInt64 decodes a big-endian 64-bit integer from the key.
func (c *BufferCursor) KeyInt64(pos int) int64 { return c.key.view.Int64(pos, ByteOrder) }

// KeyFloat32 decodes a big-endian IEEE-754 single from the key.
func (c *BufferCursor) KeyFloat32(pos int) float32 { return c.key.view.Float32(pos, ByteOrder) }

// KeyFloat64 decodes a big-endian IEEE-754 double from the key.
func (c *BufferCursor) KeyFloat64(pos int) float64 { return c.key.view.Float64(pos, ByteOrder) }

// KeyUtf8 decodes a NUL terminated string from the key.
func (c *BufferCursor) KeyUtf8(pos int) ByteString { return c.key.view.String(pos) }

// KeyBytes copies n key bytes starting at pos.
func (c *BufferCursor) KeyBytes(pos, n int) []byte {
	b := make([]byte, n)
	c.key.view.CopyBytes(pos, b)
	return b
}

// KeyBytesCopy copies the current key: the staged prefix while composing,
// the whole view otherwise.
func (c *BufferCursor) KeyBytesCopy() []byte { return bytes.Clone(c.key.extent()) }

// KeyLen returns the length of the current key view.
func (c *BufferCursor) KeyLen() int { return c.key.view.Len() }

// ValByte returns the value byte at pos.
func (c *BufferCursor) ValByte(pos int) byte { return c.val.view.Byte(pos) }

// ValInt8 returns the value byte at pos as a signed integer.
func (c *BufferCursor) ValInt8(pos int) int8 { return c.val.view.Int8(pos) }

// ValInt32 decodes a big-endian 32-bit integer from the value.
func (c *BufferCursor) ValInt32(pos int) int32 { return c.val.view.Int32(pos, ByteOrder) }

// ValInt64 decodes a big-endian 64-bit integer from the value.
func (c *BufferCursor) ValInt64(pos int) int64 { return c.val.view.Int64(pos, ByteOrder) }

// ValFloat32 decodes a big-endian IEEE-754 single from the value.
func (c *BufferCursor) ValFloat32(pos int) float32 { return c.val.view.Float32(pos, ByteOrder) }

// ValFloat64 decodes a big-endian IEEE-754 double from the value.
func (c *BufferCursor) ValFloat64(pos int) float64 { return c.val.view.Float64(pos, ByteOrder) }

// ValUtf8 decodes a NUL terminated string from the value.
func (c *BufferCursor) ValUtf8(pos int) ByteString { return c.val.view.String(pos) }

// ValBytes copies n value bytes starting at pos.
func (c *BufferCursor) ValBytes(pos, n int) []byte {
	b := make([]byte, n)
	c.val.view.CopyBytes(pos, b)
	return b
}

// ValBytesCopy copies the current value: the staged prefix while
// composing, the whole view otherwise.
func (c *BufferCursor) ValBytesCopy() []byte { return bytes.Clone(c.val.extent()) }

// ValLen returns the length of the current value view.
func (c *BufferCursor) ValLen() int { return c.val.view.Len() }
