// Package boltstore drives a bbolt bucket cursor (go.etcd.io/bbolt) as a
// bufcursor.Store.
//
// bbolt keys are unique, so duplicate-key operations fail with
// ErrIncompatible. Slices returned by a read transaction point into the
// memory map; the BufferCursor never writes to them.
package boltstore

import (
	"bytes"
	"errors"

	"github.com/Giulio2002/bufcursor"
	bolt "go.etcd.io/bbolt"
)

// Store is a bufcursor.Store over one bucket.
type Store struct {
	bucket *bolt.Bucket
	cur    *bolt.Cursor

	// pos is a copy of the current key. bbolt cursors have no
	// GetCurrent and are invalidated by writes, so a move that follows a
	// write or a failed seek starts by seeking back to it.
	pos         []byte
	valid       bool
	synced      bool
	afterDelete bool

	readOnly bool
	closed   bool
}

// Open returns a store over the named bucket of tx.
func Open(tx *bolt.Tx, bucket []byte) (*Store, error) {
	b := tx.Bucket(bucket)
	if b == nil {
		return nil, bufcursor.WrapError(bufcursor.ErrNotFound, bolt.ErrBucketNotFound)
	}
	return OpenBucket(b), nil
}

// OpenBucket returns a store over b.
func OpenBucket(b *bolt.Bucket) *Store {
	return &Store{
		bucket:   b,
		cur:      b.Cursor(),
		readOnly: !b.Tx().Writable(),
	}
}

func (s *Store) at(k, v []byte) ([]byte, []byte, error) {
	if k == nil {
		s.synced = false
		return nil, nil, bufcursor.ErrNotFoundError
	}
	s.pos = append(s.pos[:0], k...)
	s.valid = true
	s.synced = true
	s.afterDelete = false
	return k, v, nil
}

func (s *Store) Position(op bufcursor.GetOp) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, bufcursor.ErrClosedError
	}
	if op.IsDup() {
		return nil, nil, bufcursor.ErrIncompatibleError
	}
	switch op {
	case bufcursor.First:
		return s.at(s.cur.First())
	case bufcursor.Last:
		return s.at(s.cur.Last())
	case bufcursor.GetCurrent:
		if !s.valid || s.afterDelete {
			return nil, nil, bufcursor.ErrNotFoundError
		}
		k, v := s.cur.Seek(s.pos)
		if !bytes.Equal(k, s.pos) {
			return nil, nil, bufcursor.ErrNotFoundError
		}
		return s.at(k, v)
	case bufcursor.Next, bufcursor.NextNoDup:
		switch {
		case s.afterDelete:
			// The item after the deleted key now sorts first.
			return s.at(s.cur.Seek(s.pos))
		case !s.valid:
			return s.at(s.cur.First())
		case !s.synced:
			if k, v := s.cur.Seek(s.pos); !bytes.Equal(k, s.pos) {
				return s.at(k, v)
			}
		}
		return s.at(s.cur.Next())
	case bufcursor.Prev, bufcursor.PrevNoDup:
		switch {
		case !s.valid && !s.afterDelete:
			return s.at(s.cur.Last())
		case s.afterDelete, !s.synced:
			if k, _ := s.cur.Seek(s.pos); k == nil {
				return s.at(s.cur.Last())
			}
		}
		return s.at(s.cur.Prev())
	}
	return nil, nil, bufcursor.NewError(bufcursor.ErrInvalidArgument)
}

func (s *Store) Seek(op bufcursor.SeekOp, key, val []byte) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, bufcursor.ErrClosedError
	}
	k, v := s.cur.Seek(key)
	switch op {
	case bufcursor.SeekRange:
	case bufcursor.SeekKey:
		if !bytes.Equal(k, key) {
			k = nil
		}
	case bufcursor.SeekBoth:
		if !bytes.Equal(k, key) || !bytes.Equal(v, val) {
			k = nil
		}
	case bufcursor.SeekBothRange:
		if !bytes.Equal(k, key) || bytes.Compare(v, val) < 0 {
			k = nil
		}
	default:
		return nil, nil, bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	return s.at(k, v)
}

func (s *Store) Put(key, val []byte, flags bufcursor.PutFlags) error {
	if s.closed {
		return bufcursor.ErrClosedError
	}
	if s.readOnly {
		return bufcursor.ErrReadOnlyError
	}
	if flags.Has(bufcursor.AppendDup) {
		return bufcursor.ErrIncompatibleError
	}
	if flags.Has(bufcursor.NoOverwrite) && s.bucket.Get(key) != nil {
		return bufcursor.ErrKeyExistError
	}
	if flags.Has(bufcursor.NoDupData) {
		if old := s.bucket.Get(key); old != nil && bytes.Equal(old, val) {
			return bufcursor.ErrKeyExistError
		}
	}
	if flags.Has(bufcursor.Append) {
		if last, _ := s.bucket.Cursor().Last(); last != nil && bytes.Compare(key, last) <= 0 {
			return bufcursor.ErrKeyExistError
		}
		s.bucket.FillPercent = 1.0
	}
	// bbolt keeps the value slice until commit; the caller reuses it.
	if err := s.bucket.Put(key, bytes.Clone(val)); err != nil {
		return translate(err)
	}
	_, _, err := s.at(s.cur.Seek(key))
	return err
}

func (s *Store) Delete() error {
	if s.closed {
		return bufcursor.ErrClosedError
	}
	if s.readOnly {
		return bufcursor.ErrReadOnlyError
	}
	if !s.valid || s.afterDelete {
		return bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	if k, _ := s.cur.Seek(s.pos); !bytes.Equal(k, s.pos) {
		return bufcursor.ErrNotFoundError
	}
	if err := s.cur.Delete(); err != nil {
		return translate(err)
	}
	s.afterDelete = true
	s.synced = false
	return nil
}

func (s *Store) ReadOnly() bool { return s.readOnly }

func (s *Store) Close() error {
	s.closed = true
	s.pos = nil
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bolt.ErrTxNotWritable):
		return bufcursor.ErrReadOnlyError
	case errors.Is(err, bolt.ErrKeyRequired),
		errors.Is(err, bolt.ErrKeyTooLarge),
		errors.Is(err, bolt.ErrValueTooLarge):
		return bufcursor.WrapError(bufcursor.ErrBadValSize, err)
	case errors.Is(err, bolt.ErrIncompatibleValue):
		return bufcursor.WrapError(bufcursor.ErrIncompatible, err)
	case errors.Is(err, bolt.ErrTxClosed):
		return bufcursor.WrapError(bufcursor.ErrBadTxn, err)
	}
	return bufcursor.FromEngine(bufcursor.ErrProblem, err)
}
