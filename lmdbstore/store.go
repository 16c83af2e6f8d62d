// Package lmdbstore drives an LMDB cursor (github.com/bmatsuo/lmdb-go)
// as a bufcursor.Store.
//
// Open sets Txn.RawRead so positioned views alias the memory map. Update
// and View wrap lmdb-go's managed transactions and hand fn a ready
// BufferCursor.
package lmdbstore

import (
	"errors"
	"syscall"

	"github.com/Giulio2002/bufcursor"
	"github.com/bmatsuo/lmdb-go/lmdb"
)

var getOps = map[bufcursor.GetOp]uint{
	bufcursor.First:      lmdb.First,
	bufcursor.FirstDup:   lmdb.FirstDup,
	bufcursor.GetCurrent: lmdb.GetCurrent,
	bufcursor.Last:       lmdb.Last,
	bufcursor.LastDup:    lmdb.LastDup,
	bufcursor.Next:       lmdb.Next,
	bufcursor.NextDup:    lmdb.NextDup,
	bufcursor.NextNoDup:  lmdb.NextNoDup,
	bufcursor.Prev:       lmdb.Prev,
	bufcursor.PrevDup:    lmdb.PrevDup,
	bufcursor.PrevNoDup:  lmdb.PrevNoDup,
}

var seekOps = map[bufcursor.SeekOp]uint{
	bufcursor.SeekKey:       lmdb.SetKey,
	bufcursor.SeekRange:     lmdb.SetRange,
	bufcursor.SeekBoth:      lmdb.GetBoth,
	bufcursor.SeekBothRange: lmdb.GetBothRange,
}

func putFlags(f bufcursor.PutFlags) uint {
	var out uint
	if f.Has(bufcursor.NoOverwrite) {
		out |= lmdb.NoOverwrite
	}
	if f.Has(bufcursor.NoDupData) {
		out |= lmdb.NoDupData
	}
	if f.Has(bufcursor.Append) {
		out |= lmdb.Append
	}
	if f.Has(bufcursor.AppendDup) {
		out |= lmdb.AppendDup
	}
	return out
}

// Store is a bufcursor.Store over one LMDB cursor.
type Store struct {
	cur      *lmdb.Cursor
	readOnly bool
	closed   bool
}

// Open opens a cursor on dbi. The binding does not report whether txn is
// read-only, so readOnly must match it: a BufferCursor over a store opened
// with false in a read-only transaction stages writes that the engine then
// rejects with EACCES. Update and View pass the right value.
func Open(txn *lmdb.Txn, dbi lmdb.DBI, readOnly bool) (*Store, error) {
	cur, err := txn.OpenCursor(dbi)
	if err != nil {
		return nil, translate(err)
	}
	txn.RawRead = true
	return &Store{cur: cur, readOnly: readOnly}, nil
}

func (s *Store) Position(op bufcursor.GetOp) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, bufcursor.ErrClosedError
	}
	code, ok := getOps[op]
	if !ok {
		return nil, nil, bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	k, v, err := s.cur.Get(nil, nil, code)
	if err != nil {
		return nil, nil, translate(err)
	}
	return k, v, nil
}

func (s *Store) Seek(op bufcursor.SeekOp, key, val []byte) ([]byte, []byte, error) {
	if s.closed {
		return nil, nil, bufcursor.ErrClosedError
	}
	code, ok := seekOps[op]
	if !ok {
		return nil, nil, bufcursor.NewError(bufcursor.ErrInvalidArgument)
	}
	k, v, err := s.cur.Get(key, val, code)
	if err != nil {
		return nil, nil, translate(err)
	}
	if op.HasValue() {
		// MDB_GET_BOTH leaves the probe in the key slot.
		if k, v, err = s.cur.Get(nil, nil, lmdb.GetCurrent); err != nil {
			return nil, nil, translate(err)
		}
	}
	return k, v, nil
}

func (s *Store) Put(key, val []byte, flags bufcursor.PutFlags) error {
	if s.closed {
		return bufcursor.ErrClosedError
	}
	if s.readOnly {
		return bufcursor.ErrReadOnlyError
	}
	return translate(s.cur.Put(key, val, putFlags(flags)))
}

func (s *Store) Delete() error {
	if s.closed {
		return bufcursor.ErrClosedError
	}
	if s.readOnly {
		return bufcursor.ErrReadOnlyError
	}
	return translate(s.cur.Del(0))
}

func (s *Store) ReadOnly() bool { return s.readOnly }

// Close closes the native cursor. It must run before the transaction
// commits or aborts.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cur.Close()
	return nil
}

// translate maps an lmdb-go error onto the bufcursor codes. LMDB and MDBX
// agree on the numbering of every code bufcursor names.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case lmdb.IsNotFound(err):
		return bufcursor.ErrNotFoundError
	case lmdb.IsErrno(err, lmdb.KeyExist):
		return bufcursor.ErrKeyExistError
	}
	var op *lmdb.OpError
	if errors.As(err, &op) {
		switch e := op.Errno.(type) {
		case lmdb.Errno:
			return bufcursor.FromEngine(bufcursor.ErrorCode(e), err)
		case syscall.Errno:
			return bufcursor.FromEngine(bufcursor.ErrorCode(e), err)
		}
	}
	return bufcursor.FromEngine(bufcursor.ErrProblem, err)
}

// Update runs fn with a cursor over dbi inside env.Update. The cursor is
// closed before the transaction commits; a non-nil error from fn aborts
// it.
func Update(env *lmdb.Env, dbi lmdb.DBI, opts *bufcursor.Options, fn func(c *bufcursor.BufferCursor) error) error {
	return env.Update(func(txn *lmdb.Txn) error {
		return run(txn, dbi, false, opts, fn)
	})
}

// View runs fn with a read-only cursor over dbi inside env.View.
func View(env *lmdb.Env, dbi lmdb.DBI, opts *bufcursor.Options, fn func(c *bufcursor.BufferCursor) error) error {
	return env.View(func(txn *lmdb.Txn) error {
		return run(txn, dbi, true, opts, fn)
	})
}

func run(txn *lmdb.Txn, dbi lmdb.DBI, readOnly bool, opts *bufcursor.Options, fn func(*bufcursor.BufferCursor) error) error {
	s, err := Open(txn, dbi, readOnly)
	if err != nil {
		return err
	}
	c, err := bufcursor.New(s, opts)
	if err != nil {
		s.Close()
		return err
	}
	defer c.Close()
	return fn(c)
}
