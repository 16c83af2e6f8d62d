//go:build rocksdb

// Package rocksstore drives a RocksDB iterator
// (github.com/tecbot/gorocksdb) as a bufcursor.Store.
//
// Iterator keys and values are read straight out of RocksDB's block
// memory. Reads run over a snapshot; writes run inside a
// TransactionDB transaction. Build with -tags rocksdb and a system
// librocksdb.
package rocksstore

import (
	"bytes"
	"strings"

	"github.com/Giulio2002/bufcursor"
	"github.com/tecbot/gorocksdb"
)

// Store is a bufcursor.Store over a RocksDB iterator.
type Store struct {
	newIter  func() *gorocksdb.Iterator
	txn      *gorocksdb.Transaction
	writable bool
	ro       *gorocksdb.ReadOptions
	it       *gorocksdb.Iterator

	pos         []byte
	valid       bool
	synced      bool
	afterDelete bool

	closed bool
}

// OpenSnapshot returns a read-only store over db as of snap. The caller
// keeps ownership of ro, whose snapshot is replaced.
func OpenSnapshot(db *gorocksdb.DB, snap *gorocksdb.Snapshot, ro *gorocksdb.ReadOptions) *Store {
	ro.SetSnapshot(snap)
	return &Store{
		newIter: func() *gorocksdb.Iterator { return db.NewIterator(ro) },
		ro:      ro,
	}
}

// OpenTransaction returns a read-write store over txn. Reads through the
// store see the transaction's own writes.
func OpenTransaction(txn *gorocksdb.Transaction, ro *gorocksdb.ReadOptions) *Store {
	s := OpenReadTransaction(txn, ro)
	s.writable = true
	return s
}

// OpenReadTransaction returns a read-only store over txn.
func OpenReadTransaction(txn *gorocksdb.Transaction, ro *gorocksdb.ReadOptions) *Store {
	return &Store{
		newIter: func() *gorocksdb.Iterator { return txn.NewIterator(ro) },
		txn:     txn,
		ro:      ro,
	}
}

func (s *Store) iter() *gorocksdb.Iterator {
	if s.it == nil {
		s.it = s.newIter()
		s.synced = false
	}
	return s.it
}

func (s *Store) drop() {
	if s.it != nil {
		s.it.Close()
		s.it = nil
	}
	s.synced = false
}

func (s *Store) at() ([]byte, []byte, error) {
	if !s.it.Valid() {
		s.synced = false
		if err := s.it.Err(); err != nil {
			return nil, nil, translate(err)
		}
		return nil, nil, bufcursor.ErrNotFoundError
	}
	k := s.it.Key().Data()
	s.pos = append(s.pos[:0], k...)
	s.valid = true
	s.synced = true
	s.afterDelete = false
	return k, s.it.Value().Data(), nil
}

func (s *Store) onPos() bool {
	return s.it.Valid() && bytes.Equal(s.it.Key().Data(), s.pos)
}

func (s *Store) Position(op bufcursor.GetOp) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, bufcursor.ErrClosedError
	}
	if op.IsDup() {
		return nil, nil, bufcursor.ErrIncompatibleError
	}
	it := s.iter()
	switch op {
	case bufcursor.First:
		it.SeekToFirst()
	case bufcursor.Last:
		it.SeekToLast()
	case bufcursor.GetCurrent:
		if !s.valid || s.afterDelete {
			return nil, nil, bufcursor.ErrNotFoundError
		}
		it.Seek(s.pos)
		if !s.onPos() {
			s.synced = false
			return nil, nil, bufcursor.ErrNotFoundError
		}
	case bufcursor.Next, bufcursor.NextNoDup:
		switch {
		case s.afterDelete:
			it.Seek(s.pos)
		case !s.valid:
			it.SeekToFirst()
		case !s.synced:
			if it.Seek(s.pos); s.onPos() {
				it.Next()
			}
		default:
			it.Next()
		}
	case bufcursor.Prev, bufcursor.PrevNoDup:
		switch {
		case !s.valid:
			it.SeekToLast()
		case s.afterDelete, !s.synced:
			if it.Seek(s.pos); it.Valid() {
				it.Prev()
			} else {
				it.SeekToLast()
			}
		default:
			it.Prev()
		}
	default:
		return nil, nil, bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	return s.at()
}

func (s *Store) Seek(op bufcursor.SeekOp, key, val []byte) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, bufcursor.ErrClosedError
	}
	if !op.Valid() {
		return nil, nil, bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	it := s.iter()
	it.Seek(key)
	if it.Valid() && op != bufcursor.SeekRange {
		match := bytes.Equal(it.Key().Data(), key)
		switch op {
		case bufcursor.SeekBoth:
			match = match && bytes.Equal(it.Value().Data(), val)
		case bufcursor.SeekBothRange:
			match = match && bytes.Compare(it.Value().Data(), val) >= 0
		}
		if !match {
			s.synced = false
			return nil, nil, bufcursor.ErrNotFoundError
		}
	}
	return s.at()
}

func (s *Store) Put(key, val []byte, flags bufcursor.PutFlags) error {
	if s.closed {
		return bufcursor.ErrClosedError
	}
	if !s.writable {
		return bufcursor.ErrReadOnlyError
	}
	if flags.Has(bufcursor.AppendDup) {
		return bufcursor.ErrIncompatibleError
	}
	if flags.Has(bufcursor.NoOverwrite) || flags.Has(bufcursor.NoDupData) {
		old, err := s.txn.Get(s.ro, key)
		if err != nil {
			return translate(err)
		}
		exists := old.Exists()
		same := exists && bytes.Equal(old.Data(), val)
		old.Free()
		if (flags.Has(bufcursor.NoOverwrite) && exists) || (flags.Has(bufcursor.NoDupData) && same) {
			return bufcursor.ErrKeyExistError
		}
	}
	if flags.Has(bufcursor.Append) {
		it := s.iter()
		it.SeekToLast()
		s.synced = false
		if it.Valid() && bytes.Compare(key, it.Key().Data()) <= 0 {
			return bufcursor.ErrKeyExistError
		}
	}
	if err := s.txn.Put(key, val); err != nil {
		return translate(err)
	}
	s.drop()
	s.pos = append(s.pos[:0], key...)
	s.valid = true
	s.afterDelete = false
	return nil
}

func (s *Store) Delete() error {
	if s.closed {
		return bufcursor.ErrClosedError
	}
	if !s.writable {
		return bufcursor.ErrReadOnlyError
	}
	if !s.valid || s.afterDelete {
		return bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	if err := s.txn.Delete(s.pos); err != nil {
		return translate(err)
	}
	s.drop()
	s.afterDelete = true
	return nil
}

func (s *Store) ReadOnly() bool { return !s.writable }

// Close closes the iterator. The snapshot or transaction stays open.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.drop()
	return nil
}

// translate maps RocksDB status strings onto bufcursor codes.
func translate(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "Corruption"):
		return bufcursor.WrapError(bufcursor.ErrCorrupted, err)
	case strings.HasPrefix(msg, "Invalid argument"):
		return bufcursor.WrapError(bufcursor.ErrInvalidArgument, err)
	case strings.HasPrefix(msg, "Busy"), strings.HasPrefix(msg, "Operation timed out"):
		return bufcursor.WrapError(bufcursor.ErrBadTxn, err)
	}
	return bufcursor.FromEngine(bufcursor.ErrProblem, err)
}
