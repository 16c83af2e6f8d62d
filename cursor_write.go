package bufcursor

// ready makes room for n more bytes on s and switches it to its scratch
// buffer. Nothing changes when the room cannot be made.
func (c *BufferCursor) ready(s *side, n int) error {
	if c.closed {
		return ErrClosedError
	}
	if c.readOnly {
		return ErrReadOnlyError
	}
	before := s.scratch.Cap()
	if err := s.scratch.EnsureWritable(n); err != nil {
		return err
	}
	if c.debug && s.scratch.Cap() != before {
		c.log.Debug("scratch grown", "side", s.name, "from", before, "to", s.scratch.Cap())
	}
	if s.state == stateAliased {
		c.toSafe(s)
	} else {
		s.view.Wrap(s.scratch.Bytes())
	}
	return nil
}

func (c *BufferCursor) writeByte(s *side, b byte) error {
	if err := c.ready(s, 1); err != nil {
		return err
	}
	s.view.PutByte(s.scratch.Offset(), b)
	s.scratch.Advance(1)
	return nil
}

func (c *BufferCursor) writeInt32(s *side, n int32) error {
	if err := c.ready(s, 4); err != nil {
		return err
	}
	s.view.PutInt32(s.scratch.Offset(), n, ByteOrder)
	s.scratch.Advance(4)
	return nil
}

func (c *BufferCursor) writeInt64(s *side, n int64) error {
	if err := c.ready(s, 8); err != nil {
		return err
	}
	s.view.PutInt64(s.scratch.Offset(), n, ByteOrder)
	s.scratch.Advance(8)
	return nil
}

func (c *BufferCursor) writeFloat32(s *side, f float32) error {
	if err := c.ready(s, 4); err != nil {
		return err
	}
	s.view.PutFloat32(s.scratch.Offset(), f, ByteOrder)
	s.scratch.Advance(4)
	return nil
}

func (c *BufferCursor) writeFloat64(s *side, f float64) error {
	if err := c.ready(s, 8); err != nil {
		return err
	}
	s.view.PutFloat64(s.scratch.Offset(), f, ByteOrder)
	s.scratch.Advance(8)
	return nil
}

func (c *BufferCursor) writeString(s *side, str ByteString) error {
	if err := c.ready(s, str.Size()+1); err != nil {
		return err
	}
	n := s.view.PutString(s.scratch.Offset(), str)
	s.scratch.Advance(n)
	return nil
}

func (c *BufferCursor) writeBytes(s *side, b []byte) error {
	if err := c.ready(s, len(b)); err != nil {
		return err
	}
	s.view.PutBytes(s.scratch.Offset(), b)
	s.scratch.Advance(len(b))
	return nil
}

func (c *BufferCursor) writeView(s *side, src RawView, n int) error {
	if n < 0 || n > src.Len() {
		return errorf(ErrInvalidArgument, "cannot copy %d bytes from a view of %d", n, src.Len())
	}
	if err := c.ready(s, n); err != nil {
		return err
	}
	s.view.PutView(s.scratch.Offset(), src, n)
	s.scratch.Advance(n)
	return nil
}

// KeyWriteByte appends one byte to the key.
func (c *BufferCursor) KeyWriteByte(b byte) error { return c.writeByte(&c.key, b) }

// KeyWriteInt8 appends a signed byte to the key.
func (c *BufferCursor) KeyWriteInt8(n int8) error { return c.writeByte(&c.key, byte(n)) }

// KeyWriteInt32 appends a big-endian 32-bit integer to the key.
func (c *BufferCursor) KeyWriteInt32(n int32) error { return c.writeInt32(&c.key, n) }

// KeyWriteInt64 appends a big-endian 64-bit integer to the key.
func (c *BufferCursor) KeyWriteInt64(n int64) error { return c.writeInt64(&c.key, n) }

// KeyWriteFloat32 appends a big-endian IEEE-754 single to the key.
func (c *BufferCursor) KeyWriteFloat32(f float32) error { return c.writeFloat32(&c.key, f) }

// KeyWriteFloat64 appends a big-endian IEEE-754 double to the key.
func (c *BufferCursor) KeyWriteFloat64(f float64) error { return c.writeFloat64(&c.key, f) }

// KeyWriteUtf8 appends s and a NUL terminator to the key. KeyUtf8 stops at
// the first NUL, so s must not contain one to read back intact; use
// KeyWriteBytes for arbitrary bytes.
func (c *BufferCursor) KeyWriteUtf8(s string) error {
	return c.writeString(&c.key, NewByteString(s))
}

// KeyWriteByteString appends s and a NUL terminator to the key, with the
// same embedded NUL caveat as KeyWriteUtf8.
func (c *BufferCursor) KeyWriteByteString(s ByteString) error { return c.writeString(&c.key, s) }

// KeyWriteBytes appends b to the key.
func (c *BufferCursor) KeyWriteBytes(b []byte) error { return c.writeBytes(&c.key, b) }

// KeyWriteView appends the first n bytes of src to the key.
func (c *BufferCursor) KeyWriteView(src RawView, n int) error { return c.writeView(&c.key, src, n) }

// ValWriteByte appends one byte to the value.
func (c *BufferCursor) ValWriteByte(b byte) error { return c.writeByte(&c.val, b) }

// ValWriteInt8 appends a signed byte to the value.
func (c *BufferCursor) ValWriteInt8(n int8) error { return c.writeByte(&c.val, byte(n)) }

// ValWriteInt32 appends a big-endian 32-bit integer to the value.
func (c *BufferCursor) ValWriteInt32(n int32) error { return c.writeInt32(&c.val, n) }

// ValWriteInt64 appends a big-endian 64-bit integer to the value.
func (c *BufferCursor) ValWriteInt64(n int64) error { return c.writeInt64(&c.val, n) }

// ValWriteFloat32 appends a big-endian IEEE-754 single to the value.
func (c *BufferCursor) ValWriteFloat32(f float32) error { return c.writeFloat32(&c.val, f) }

// ValWriteFloat64 appends a big-endian IEEE-754 double to the value.
func (c *BufferCursor) ValWriteFloat64(f float64) error { return c.writeFloat64(&c.val, f) }

// ValWriteUtf8 appends s and a NUL terminator to the value. ValUtf8 stops
// at the first NUL, so s must not contain one to read back intact.
func (c *BufferCursor) ValWriteUtf8(s string) error {
	return c.writeString(&c.val, NewByteString(s))
}

// ValWriteByteString appends s and a NUL terminator to the value, with
// the same embedded NUL caveat as ValWriteUtf8.
func (c *BufferCursor) ValWriteByteString(s ByteString) error { return c.writeString(&c.val, s) }

// ValWriteBytes appends b to the value.
func (c *BufferCursor) ValWriteBytes(b []byte) error { return c.writeBytes(&c.val, b) }

// ValWriteView appends the first n bytes of src to the value.
func (c *BufferCursor) ValWriteView(src RawView, n int) error { return c.writeView(&c.val, src, n) }
