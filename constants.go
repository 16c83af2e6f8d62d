package bufcursor

import (
	"encoding/binary"
	"fmt"
)

// ByteOrder is the order of every numeric field composed by the cursor
// writers and decoded by the cursor readers. Big-endian keys sort the same
// way their numeric values do. Its concrete type keeps it fixed.
var ByteOrder = binary.BigEndian

// Size limits
const (
	// MaxKeySize is the largest key the key scratch buffer holds by default
	// (the LMDB compile-time maximum).
	MaxKeySize = 511

	// MaxScratchSize is the ceiling for any scratch buffer (2 GiB)
	MaxScratchSize int64 = 1 << 31

	// DefaultValueSize is the initial capacity of the value scratch buffer
	DefaultValueSize = 128
)

// GetOp is a cursor positioning operation that takes no input. The values
// are the MDBX/LMDB cursor_op codes.
type GetOp uint

const (
	// First positions at the first key
	First GetOp = 0

	// FirstDup positions at the first value of the current key (DupSort)
	FirstDup GetOp = 1

	// GetCurrent re-reads the current item
	GetCurrent GetOp = 4

	// Last positions at the last key
	Last GetOp = 6

	// LastDup positions at the last value of the current key (DupSort)
	LastDup GetOp = 7

	// Next moves to the next item
	Next GetOp = 8

	// NextDup moves to the next value of the current key (DupSort)
	NextDup GetOp = 9

	// NextNoDup moves to the first value of the next key
	NextNoDup GetOp = 11

	// Prev moves to the previous item
	Prev GetOp = 12

	// PrevDup moves to the previous value of the current key (DupSort)
	PrevDup GetOp = 13

	// PrevNoDup moves to the last value of the previous key
	PrevNoDup GetOp = 14
)

var getOpNames = map[GetOp]string{
	First:      "First",
	FirstDup:   "FirstDup",
	GetCurrent: "GetCurrent",
	Last:       "Last",
	LastDup:    "LastDup",
	Next:       "Next",
	NextDup:    "NextDup",
	NextNoDup:  "NextNoDup",
	Prev:       "Prev",
	PrevDup:    "PrevDup",
	PrevNoDup:  "PrevNoDup",
}

// Code returns the engine cursor_op value.
func (op GetOp) Code() uint { return uint(op) }

// Valid reports whether op is one of the declared operations.
func (op GetOp) Valid() bool {
	_, ok := getOpNames[op]
	return ok
}

func (op GetOp) String() string {
	if s, ok := getOpNames[op]; ok {
		return s
	}
	return fmt.Sprintf("GetOp(%d)", uint(op))
}

// IsDup reports whether op only moves within the values of one key.
func (op GetOp) IsDup() bool {
	switch op {
	case FirstDup, LastDup, NextDup, PrevDup:
		return true
	}
	return false
}

// SeekOp is a cursor positioning operation driven by a caller key (and
// value, for the Both variants).
type SeekOp uint

const (
	// SeekKey positions at exactly the given key (SET_KEY)
	SeekKey SeekOp = 16

	// SeekRange positions at the first key >= the given key (SET_RANGE)
	SeekRange SeekOp = 17

	// SeekBoth positions at exactly the given key/value pair (GET_BOTH)
	SeekBoth SeekOp = 2

	// SeekBothRange positions at the given key and the first value >= the
	// given value (GET_BOTH_RANGE)
	SeekBothRange SeekOp = 3
)

// Code returns the engine cursor_op value.
func (op SeekOp) Code() uint { return uint(op) }

// Valid reports whether op is one of the declared operations.
func (op SeekOp) Valid() bool {
	switch op {
	case SeekKey, SeekRange, SeekBoth, SeekBothRange:
		return true
	}
	return false
}

// HasValue reports whether op reads the value argument.
func (op SeekOp) HasValue() bool {
	return op == SeekBoth || op == SeekBothRange
}

func (op SeekOp) String() string {
	switch op {
	case SeekKey:
		return "SeekKey"
	case SeekRange:
		return "SeekRange"
	case SeekBoth:
		return "SeekBoth"
	case SeekBothRange:
		return "SeekBothRange"
	}
	return fmt.Sprintf("SeekOp(%d)", uint(op))
}

// PutFlags control how a commit stores the staged pair. The values are the
// MDBX put flags; adapters for other engines translate them.
type PutFlags uint

const (
	// Upsert stores the pair, replacing an existing value (or adding a
	// duplicate in DupSort databases)
	Upsert PutFlags = 0

	// NoOverwrite fails with ErrKeyExist when the key is present
	NoOverwrite PutFlags = 0x10

	// NoDupData fails with ErrKeyExist when the exact pair is present
	NoDupData PutFlags = 0x20

	// Append stores the key at the end of the database; the key must sort
	// after every existing key
	Append PutFlags = 0x20000

	// AppendDup stores the value at the end of the current key's values
	AppendDup PutFlags = 0x40000
)

// Has reports whether all bits of flag are set.
func (f PutFlags) Has(flag PutFlags) bool {
	return flag != 0 && f&flag == flag
}
