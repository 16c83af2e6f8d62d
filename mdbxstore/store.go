// Package mdbxstore drives an MDBX cursor (github.com/erigontech/mdbx-go)
// as a bufcursor.Store.
//
// The transaction is switched to raw reads, so slices handed to the
// BufferCursor point straight into the memory map. Write transactions must
// stay on the goroutine that created them, locked to its OS thread.
package mdbxstore

import (
	"errors"
	"syscall"

	"github.com/Giulio2002/bufcursor"
	"github.com/erigontech/mdbx-go/mdbx"
)

var getOps = map[bufcursor.GetOp]uint{
	bufcursor.First:      mdbx.First,
	bufcursor.FirstDup:   mdbx.FirstDup,
	bufcursor.GetCurrent: mdbx.GetCurrent,
	bufcursor.Last:       mdbx.Last,
	bufcursor.LastDup:    mdbx.LastDup,
	bufcursor.Next:       mdbx.Next,
	bufcursor.NextDup:    mdbx.NextDup,
	bufcursor.NextNoDup:  mdbx.NextNoDup,
	bufcursor.Prev:       mdbx.Prev,
	bufcursor.PrevDup:    mdbx.PrevDup,
	bufcursor.PrevNoDup:  mdbx.PrevNoDup,
}

var seekOps = map[bufcursor.SeekOp]uint{
	bufcursor.SeekKey:       mdbx.SetKey,
	bufcursor.SeekRange:     mdbx.SetRange,
	bufcursor.SeekBoth:      mdbx.GetBoth,
	bufcursor.SeekBothRange: mdbx.GetBothRange,
}

func putFlags(f bufcursor.PutFlags) uint {
	var out uint
	if f.Has(bufcursor.NoOverwrite) {
		out |= mdbx.NoOverwrite
	}
	if f.Has(bufcursor.NoDupData) {
		out |= mdbx.NoDupData
	}
	if f.Has(bufcursor.Append) {
		out |= mdbx.Append
	}
	if f.Has(bufcursor.AppendDup) {
		out |= mdbx.AppendDup
	}
	return out
}

// Store is a bufcursor.Store over one MDBX cursor.
type Store struct {
	cur      *mdbx.Cursor
	readOnly bool
	closed   bool
}

// Open opens a cursor on dbi. The binding does not report whether txn is
// read-only, so readOnly must match it: a BufferCursor over a store opened
// with false in a read-only transaction stages writes that the engine then
// rejects with EACCES. Update and View pass the right value.
func Open(txn *mdbx.Txn, dbi mdbx.DBI, readOnly bool) (*Store, error) {
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
		// GET_BOTH* hand back the probe key; re-read to point into the map.
		if k, v, err = s.cur.Get(nil, nil, mdbx.GetCurrent); err != nil {
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

// translate maps an mdbx-go error onto the bufcursor codes, which share
// MDBX's numbering.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case mdbx.IsNotFound(err):
		return bufcursor.ErrNotFoundError
	case mdbx.IsErrno(err, mdbx.KeyExist):
		return bufcursor.ErrKeyExistError
	}
	var op *mdbx.OpError
	if errors.As(err, &op) {
		switch e := op.Errno.(type) {
		case mdbx.Errno:
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
func Update(env *mdbx.Env, dbi mdbx.DBI, opts *bufcursor.Options, fn func(c *bufcursor.BufferCursor) error) error {
	return env.Update(func(txn *mdbx.Txn) error {
		return run(txn, dbi, false, opts, fn)
	})
}

// View runs fn with a read-only cursor over dbi inside env.View.
func View(env *mdbx.Env, dbi mdbx.DBI, opts *bufcursor.Options, fn func(c *bufcursor.BufferCursor) error) error {
	return env.View(func(txn *mdbx.Txn) error {
		return run(txn, dbi, true, opts, fn)
	})
}

func run(txn *mdbx.Txn, dbi mdbx.DBI, readOnly bool, opts *bufcursor.Options, fn func(*bufcursor.BufferCursor) error) error {
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
