package bufcursor

import (
	"github.com/Giulio2002/bufcursor/codec"
)

// ValWriteCompressed compresses data with t and appends it to the value as
// a framed field (type byte, big-endian length, payload).
func (c *BufferCursor) ValWriteCompressed(t codec.Type, data []byte) error {
	if c.closed {
		return ErrClosedError
	}
	if c.readOnly {
		return ErrReadOnlyError
	}
	field, err := codec.AppendField(nil, t, data)
	if err != nil {
		return WrapError(ErrInvalidArgument, err)
	}
	return c.writeBytes(&c.val, field)
}

// ValCompressed decodes the framed field at pos in the value. It returns
// the decompressed data and the width of the field so the next field can
// be read at pos+width. The data is a fresh copy for every codec, None
// included, so it may be modified.
func (c *BufferCursor) ValCompressed(pos int) ([]byte, int, error) {
	v := WrapView(c.val.extent())
	if pos < 0 || pos > v.Len() {
		return nil, 0, errorf(ErrInvalidArgument, "field position %d outside value of %d bytes", pos, v.Len())
	}
	data, n, err := codec.ReadField(v.Bytes()[pos:])
	if err != nil {
		return nil, 0, WrapError(ErrCorrupted, err)
	}
	return data, n, nil
}
