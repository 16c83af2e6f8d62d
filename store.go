package bufcursor

// Store is the engine cursor a BufferCursor drives. Implementations wrap a
// native cursor bound to one transaction and database; see the mdbxstore,
// lmdbstore, boltstore, levelstore and rocksstore packages.
//
// Slices returned by Position and Seek may alias engine memory. They are
// only valid until the next call on the same Store and must never be
// written to. Put must copy key and val into engine storage before it
// returns, since the caller reuses both buffers.
//
// Not found is reported with an error satisfying IsNotFound, an existing
// key refused by NoOverwrite or NoDupData with one satisfying IsKeyExist.
// Any other failure should be an *Error carrying the engine code (see
// FromEngine).
type Store interface {
	// Position moves the cursor without input and returns the new pair.
	Position(op GetOp) (key, val []byte, err error)

	// Seek moves the cursor using key (and val for SeekBoth and
	// SeekBothRange) and returns the pair found.
	Seek(op SeekOp, key, val []byte) (k, v []byte, err error)

	// Put stores the pair. The cursor is left on the stored item.
	Put(key, val []byte, flags PutFlags) error

	// Delete removes the item at the current position.
	Delete() error

	// ReadOnly reports whether the underlying transaction refuses writes.
	ReadOnly() bool

	// Close releases the native cursor. It is idempotent.
	Close() error
}
