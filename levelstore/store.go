// Package levelstore drives a goleveldb iterator
// (github.com/syndtr/goleveldb) as a bufcursor.Store.
//
// Reads run over a Snapshot, writes over a Transaction. Iterator slices
// are handed out without copying and stay valid until the next call.
// goleveldb keys are unique, so duplicate-key operations fail with
// ErrIncompatible.
package levelstore

import (
	"bytes"

	"github.com/Giulio2002/bufcursor"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

type reader interface {
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

// Store is a bufcursor.Store over a snapshot or a transaction.
type Store struct {
	r  reader
	tr *leveldb.Transaction // nil when read-only
	ro *opt.ReadOptions
	it iterator.Iterator

	// Iterators do not see writes made after they were created. A write
	// drops the iterator; the next move opens a fresh one and seeks
	// back to pos.
	pos         []byte
	valid       bool
	synced      bool
	afterDelete bool

	closed bool
}

// OpenSnapshot returns a read-only store over snap. ro may be nil.
func OpenSnapshot(snap *leveldb.Snapshot, ro *opt.ReadOptions) *Store {
	return &Store{r: snap, ro: ro}
}

// OpenTransaction returns a read-write store over tr. Committing or
// discarding tr stays with the caller, after Close.
func OpenTransaction(tr *leveldb.Transaction, ro *opt.ReadOptions) *Store {
	return &Store{r: tr, tr: tr, ro: ro}
}

func (s *Store) iter() iterator.Iterator {
	if s.it == nil {
		s.it = s.r.NewIterator(nil, s.ro)
		s.synced = false
	}
	return s.it
}

func (s *Store) drop() {
	if s.it != nil {
		s.it.Release()
		s.it = nil
	}
	s.synced = false
}

func (s *Store) at(ok bool) ([]byte, []byte, error) {
	if !ok {
		s.synced = false
		if err := s.it.Error(); err != nil {
			return nil, nil, translate(err)
		}
		return nil, nil, bufcursor.ErrNotFoundError
	}
	k := s.it.Key()
	s.pos = append(s.pos[:0], k...)
	s.valid = true
	s.synced = true
	s.afterDelete = false
	return k, s.it.Value(), nil
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
		return s.at(it.First())
	case bufcursor.Last:
		return s.at(it.Last())
	case bufcursor.GetCurrent:
		if !s.valid || s.afterDelete {
			return nil, nil, bufcursor.ErrNotFoundError
		}
		if !it.Seek(s.pos) || !bytes.Equal(it.Key(), s.pos) {
			return s.at(false)
		}
		return s.at(true)
	case bufcursor.Next, bufcursor.NextNoDup:
		switch {
		case s.afterDelete:
			return s.at(it.Seek(s.pos))
		case !s.valid:
			return s.at(it.First())
		case !s.synced:
			if !it.Seek(s.pos) {
				return s.at(false)
			}
			if !bytes.Equal(it.Key(), s.pos) {
				return s.at(true)
			}
		}
		return s.at(it.Next())
	case bufcursor.Prev, bufcursor.PrevNoDup:
		switch {
		case !s.valid:
			return s.at(it.Last())
		case s.afterDelete, !s.synced:
			if !it.Seek(s.pos) {
				return s.at(it.Last())
			}
		}
		return s.at(it.Prev())
	}
	return nil, nil, bufcursor.NewError(bufcursor.ErrInvalidArgument)
}

func (s *Store) Seek(op bufcursor.SeekOp, key, val []byte) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, bufcursor.ErrClosedError
	}
	it := s.iter()
	ok := it.Seek(key)
	switch op {
	case bufcursor.SeekRange:
	case bufcursor.SeekKey:
		ok = ok && bytes.Equal(it.Key(), key)
	case bufcursor.SeekBoth:
		ok = ok && bytes.Equal(it.Key(), key) && bytes.Equal(it.Value(), val)
	case bufcursor.SeekBothRange:
		ok = ok && bytes.Equal(it.Key(), key) && bytes.Compare(it.Value(), val) >= 0
	default:
		return nil, nil, bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	return s.at(ok)
}

func (s *Store) Put(key, val []byte, flags bufcursor.PutFlags) error {
	if s.closed {
		return bufcursor.ErrClosedError
	}
	if s.tr == nil {
		return bufcursor.ErrReadOnlyError
	}
	if flags.Has(bufcursor.AppendDup) {
		return bufcursor.ErrIncompatibleError
	}
	if flags.Has(bufcursor.NoOverwrite) {
		has, err := s.tr.Has(key, s.ro)
		if err != nil {
			return translate(err)
		}
		if has {
			return bufcursor.ErrKeyExistError
		}
	}
	if flags.Has(bufcursor.NoDupData) {
		old, err := s.tr.Get(key, s.ro)
		if err == nil && bytes.Equal(old, val) {
			return bufcursor.ErrKeyExistError
		}
		if err != nil && err != leveldb.ErrNotFound {
			return translate(err)
		}
	}
	if flags.Has(bufcursor.Append) {
		it := s.iter()
		if it.Last() && bytes.Compare(key, it.Key()) <= 0 {
			s.synced = false
			return bufcursor.ErrKeyExistError
		}
	}
	if err := s.tr.Put(key, val, nil); err != nil {
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
	if s.tr == nil {
		return bufcursor.ErrReadOnlyError
	}
	if !s.valid || s.afterDelete {
		return bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	if err := s.tr.Delete(s.pos, nil); err != nil {
		return translate(err)
	}
	s.drop()
	s.afterDelete = true
	return nil
}

func (s *Store) ReadOnly() bool { return s.tr == nil }

// Close releases the iterator. The snapshot or transaction stays open.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.drop()
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case err == leveldb.ErrNotFound:
		return bufcursor.ErrNotFoundError
	case err == leveldb.ErrReadOnly:
		return bufcursor.ErrReadOnlyError
	case lerrors.IsCorrupted(err):
		return bufcursor.WrapError(bufcursor.ErrCorrupted, err)
	case err == leveldb.ErrClosed, err == leveldb.ErrSnapshotReleased, err == leveldb.ErrIterReleased:
		return bufcursor.WrapError(bufcursor.ErrBadTxn, err)
	}
	return bufcursor.FromEngine(bufcursor.ErrProblem, err)
}
