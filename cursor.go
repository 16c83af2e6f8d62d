package bufcursor

import (
	"log/slog"
)

// memState records who owns the memory a side's view points at.
type memState uint8

const (
	stateSafe    memState = iota // view wraps the side's scratch buffer
	stateAliased                 // view wraps engine-owned memory
)

func (s memState) String() string {
	if s == stateAliased {
		return "aliased"
	}
	return "safe"
}

// side is the key half or the value half of the cursor.
type side struct {
	name    string
	view    RawView
	scratch *ScratchBuffer
	state   memState
}

// alias points the view at engine memory and rewinds the write offset.
func (s *side) alias(b []byte) {
	s.view.Wrap(b)
	s.state = stateAliased
	s.scratch.Reset()
}

// safe points the view back at the scratch buffer.
func (s *side) safe() bool {
	swapped := s.state == stateAliased
	s.state = stateSafe
	s.view.Wrap(s.scratch.Bytes())
	return swapped
}

// extent is what a commit hands to the engine: the staged prefix when
// anything was written, otherwise the whole view.
func (s *side) extent() []byte {
	if s.scratch.Offset() > 0 {
		return s.scratch.Written()
	}
	return s.view.Bytes()
}

// BufferCursor reads and writes keys and values in place, over engine
// memory on the read path and over two scratch buffers on the write path.
//
// After a successful positioning call both sides alias engine memory,
// which is read-only and only valid until the next call on the cursor. The
// first write to a side switches it to its scratch buffer; composed fields
// are appended at the side's write offset in big-endian order. Put,
// Overwrite, Append and AppendDup commit the staged prefix of each side (or
// the whole view when nothing was staged) and rewind both offsets.
//
// A BufferCursor is bound to one Store and must not be shared between
// goroutines. Close must be called on every exit path.
type BufferCursor struct {
	store    Store
	key      side
	val      side
	readOnly bool
	closed   bool

	log   *slog.Logger
	debug bool
}

// New creates a cursor over store with freshly allocated scratch buffers.
// A nil opts uses DefaultOptions().
func New(store Store, opts *Options) (*BufferCursor, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errorf(ErrInvalidArgument, "nil store")
	}

	direct := opts.Direct || opts.RequireDirect
	key, err := newKeyScratch(opts.MaxKeySize, direct)
	if err != nil {
		return nil, err
	}
	var val *ScratchBuffer
	if direct {
		val, err = NewDirectScratchBuffer(opts.InitialValueSize)
	} else {
		val, err = NewScratchBuffer(opts.InitialValueSize)
	}
	if err != nil {
		key.Release()
		return nil, err
	}
	return newCursor(store, key, val, opts), nil
}

// NewWithBuffers creates a cursor over store that stages writes in the
// given buffers. Ownership of both passes to the cursor, which releases
// them on Close. The key buffer is pinned to its current capacity.
func NewWithBuffers(store Store, key, val *ScratchBuffer, opts *Options) (*BufferCursor, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	switch {
	case store == nil:
		return nil, errorf(ErrInvalidArgument, "nil store")
	case key == nil || val == nil:
		return nil, errorf(ErrInvalidArgument, "nil scratch buffer")
	case key.Cap() == 0:
		return nil, errorf(ErrInvalidArgument, "zero capacity key buffer")
	case opts.RequireDirect && !(key.Direct() && val.Direct()):
		return nil, errorf(ErrInvalidArgument, "scratch buffers must be direct")
	}
	if err := key.SetLimit(int64(key.Cap())); err != nil {
		return nil, err
	}
	key.Reset()
	val.Reset()
	return newCursor(store, key, val, opts), nil
}

func newCursor(store Store, key, val *ScratchBuffer, opts *Options) *BufferCursor {
	l := opts.logger()
	c := &BufferCursor{
		store:    store,
		key:      side{name: "key", scratch: key},
		val:      side{name: "value", scratch: val},
		readOnly: store.ReadOnly(),
		log:      l,
		debug:    debugOn(l),
	}
	c.key.safe()
	c.val.safe()
	return c
}

// Store returns the underlying engine cursor.
func (c *BufferCursor) Store() Store { return c.store }

// ReadOnly reports whether writes are refused.
func (c *BufferCursor) ReadOnly() bool { return c.readOnly }

// Position moves the cursor with op. It returns false, with the views
// unchanged, when there is no item to move to.
func (c *BufferCursor) Position(op GetOp) (bool, error) {
	if c.closed {
		return false, ErrClosedError
	}
	if !op.Valid() {
		return false, errorf(ErrInvalidArgument, "unknown cursor operation %s", op)
	}
	k, v, err := c.store.Position(op)
	return c.moved(op.String(), k, v, err)
}

// SeekWith moves the cursor with a keyed operation. val is only read by
// SeekBoth and SeekBothRange. The probe slices are not retained.
func (c *BufferCursor) SeekWith(op SeekOp, key, val []byte) (bool, error) {
	if c.closed {
		return false, ErrClosedError
	}
	if !op.Valid() {
		return false, errorf(ErrInvalidArgument, "unknown seek operation %s", op)
	}
	if !op.HasValue() {
		val = nil
	}
	k, v, err := c.store.Seek(op, key, val)
	return c.moved(op.String(), k, v, err)
}

func (c *BufferCursor) moved(op string, k, v []byte, err error) (bool, error) {
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		if c.debug {
			c.log.Debug("cursor operation failed", "op", op, "err", err)
		}
		return false, FromEngine(ErrProblem, err)
	}
	c.key.alias(k)
	c.val.alias(v)
	return true, nil
}

// First positions at the first key.
func (c *BufferCursor) First() (bool, error) { return c.Position(First) }

// Last positions at the last key.
func (c *BufferCursor) Last() (bool, error) { return c.Position(Last) }

// Next moves to the next item.
func (c *BufferCursor) Next() (bool, error) { return c.Position(Next) }

// Prev moves to the previous item.
func (c *BufferCursor) Prev() (bool, error) { return c.Position(Prev) }

// FirstDup positions at the first value of the current key.
func (c *BufferCursor) FirstDup() (bool, error) { return c.Position(FirstDup) }

// LastDup positions at the last value of the current key.
func (c *BufferCursor) LastDup() (bool, error) { return c.Position(LastDup) }

// NextDup moves to the next value of the current key.
func (c *BufferCursor) NextDup() (bool, error) { return c.Position(NextDup) }

// PrevDup moves to the previous value of the current key.
func (c *BufferCursor) PrevDup() (bool, error) { return c.Position(PrevDup) }

// NextNoDup moves to the first value of the next key.
func (c *BufferCursor) NextNoDup() (bool, error) { return c.Position(NextNoDup) }

// PrevNoDup moves to the last value of the previous key.
func (c *BufferCursor) PrevNoDup() (bool, error) { return c.Position(PrevNoDup) }

// GetCurrent re-reads the item under the cursor.
func (c *BufferCursor) GetCurrent() (bool, error) { return c.Position(GetCurrent) }

// Seek positions at the first key greater than or equal to key.
func (c *BufferCursor) Seek(key []byte) (bool, error) {
	return c.SeekWith(SeekRange, key, nil)
}

// SeekKey positions at exactly key.
func (c *BufferCursor) SeekKey(key []byte) (bool, error) {
	return c.SeekWith(SeekKey, key, nil)
}

// SeekBoth positions at exactly the key/value pair.
func (c *BufferCursor) SeekBoth(key, val []byte) (bool, error) {
	return c.SeekWith(SeekBoth, key, val)
}

// SeekBothRange positions at key and its first value greater than or
// equal to val.
func (c *BufferCursor) SeekBothRange(key, val []byte) (bool, error) {
	return c.SeekWith(SeekBothRange, key, val)
}

// Delete removes the item under the cursor. Read-only enforcement is left
// to the store.
func (c *BufferCursor) Delete() error {
	if c.closed {
		return ErrClosedError
	}
	if err := c.store.Delete(); err != nil {
		if c.debug {
			c.log.Debug("delete failed", "err", err)
		}
		return FromEngine(ErrProblem, err)
	}
	return nil
}

// Put stores the staged pair unless the key already exists, in which case
// it returns false and nothing is written.
func (c *BufferCursor) Put() (bool, error) {
	return c.commit(NoOverwrite)
}

// Overwrite stores the staged pair, replacing the value of an existing key
// (or adding a duplicate in a DupSort database).
func (c *BufferCursor) Overwrite() (bool, error) {
	return c.commit(Upsert)
}

// Append stores the staged pair at the end of the database. The key must
// sort after every existing key; any refusal is returned as an error.
func (c *BufferCursor) Append() error {
	return c.put(Append)
}

// AppendDup stores the staged value at the end of the current key's
// values in a DupSort database.
func (c *BufferCursor) AppendDup() error {
	return c.put(AppendDup)
}

// PutWith stores the staged pair with explicit flags.
func (c *BufferCursor) PutWith(flags PutFlags) error {
	return c.put(flags)
}

func (c *BufferCursor) commit(flags PutFlags) (bool, error) {
	err := c.put(flags)
	if err == nil {
		return true, nil
	}
	if IsKeyExist(err) {
		return false, nil
	}
	return false, err
}

func (c *BufferCursor) put(flags PutFlags) error {
	if c.closed {
		return ErrClosedError
	}
	if c.readOnly {
		return ErrReadOnlyError
	}
	k := c.key.extent()
	v := c.val.extent()
	c.key.scratch.Reset()
	c.val.scratch.Reset()
	if err := c.store.Put(k, v, flags); err != nil {
		if IsKeyExist(err) {
			return err
		}
		if c.debug {
			c.log.Debug("put failed", "flags", uint(flags), "key", len(k), "value", len(v), "err", err)
		}
		return FromEngine(ErrProblem, err)
	}
	return nil
}

// SetWriteMode switches both sides to their scratch buffers. Only needed
// by callers that fill KeyBuffer or ValBuffer themselves.
func (c *BufferCursor) SetWriteMode() {
	c.toSafe(&c.key)
	c.toSafe(&c.val)
}

func (c *BufferCursor) toSafe(s *side) {
	if s.safe() && c.debug {
		c.log.Debug("side switched to scratch", "side", s.name, "cap", s.scratch.Cap())
	}
}

// KeyBuffer returns the key view itself. Writing through it bypasses the
// write offset; mixing it with the Key writers in one cycle is undefined.
func (c *BufferCursor) KeyBuffer() *RawView { return &c.key.view }

// ValBuffer returns the value view itself. The same caveats as KeyBuffer
// apply.
func (c *BufferCursor) ValBuffer() *RawView { return &c.val.view }

// KeyAddr returns the address of the first key byte, or 0 when empty.
func (c *BufferCursor) KeyAddr() uintptr { return c.key.view.Addr() }

// ValAddr returns the address of the first value byte, or 0 when empty.
func (c *BufferCursor) ValAddr() uintptr { return c.val.view.Addr() }

// KeyAliased reports whether the key view points at engine memory.
func (c *BufferCursor) KeyAliased() bool { return c.key.state == stateAliased }

// ValAliased reports whether the value view points at engine memory.
func (c *BufferCursor) ValAliased() bool { return c.val.state == stateAliased }

// KeyOffset returns the number of key bytes staged since the last
// positioning call or commit.
func (c *BufferCursor) KeyOffset() int { return c.key.scratch.Offset() }

// ValOffset returns the number of value bytes staged since the last
// positioning call or commit.
func (c *BufferCursor) ValOffset() int { return c.val.scratch.Offset() }

// Close closes the store and releases both scratch buffers. Views obtained
// from the cursor are invalid afterwards. Close is idempotent.
func (c *BufferCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.store.Close()
	c.key.view.Wrap(nil)
	c.val.view.Wrap(nil)
	if kerr := c.key.scratch.Release(); err == nil {
		err = kerr
	}
	if verr := c.val.scratch.Release(); err == nil {
		err = verr
	}
	return err
}
