// Package bufcursor is a zero-copy accessor layer over embedded,
// memory-mapped key/value stores.
//
// A BufferCursor drives an engine cursor (a Store) and exposes the current
// key and value as RawViews. After a positioning call the views alias the
// engine's mapped pages, so reading costs no allocation and no copy. The
// first write to a side moves it onto a ScratchBuffer, where multi-field
// keys and values are composed in big-endian order before being committed.
//
// Key features:
//   - Read path aliases engine memory, valid until the next cursor call
//   - Write path composes into heap or off-heap (mmap) scratch buffers
//   - Value scratch grows by doubling up to 2 GiB; the key scratch is fixed
//   - Adapters for MDBX, LMDB, bbolt, goleveldb and RocksDB
//
// Iterating a database:
//
//	c, err := bufcursor.New(store, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	for ok, err := c.First(); ok && err == nil; ok, err = c.Next() {
//	    fmt.Println(c.KeyUtf8(0), c.ValUtf8(0))
//	}
//
// Seeking:
//
//	found, err := c.Seek([]byte("London"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if found {
//	    fmt.Println(c.KeyUtf8(0))
//	}
//
// Composing and committing a pair in a write transaction:
//
//	c.KeyWriteUtf8("England")
//	c.KeyWriteInt64(2024)
//	c.ValWriteUtf8("London")
//	stored, err := c.Put() // false if the key already exists
//
//	c.KeyWriteUtf8("England")
//	c.KeyWriteInt64(2024)
//	c.ValWriteUtf8("Manchester")
//	_, err = c.Overwrite()
//
//	c.Seek([]byte("England"))
//	c.Delete()
//
// Views handed out by a cursor must never be written while they alias
// engine memory, and none of them may be used after Close.
package bufcursor
