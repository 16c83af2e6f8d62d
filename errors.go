package bufcursor

import (
	"errors"
	"fmt"
)

// Error represents a bufcursor error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bufcursor: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("bufcursor: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode represents MDBX/LMDB compatible error codes. Engine adapters
// forward the native code unchanged when it has no entry here.
type ErrorCode int

// Error codes - matching MDBX for compatibility
const (
	// Success indicates the operation completed successfully
	Success ErrorCode = 0

	// ErrPermissionDenied is EACCES: a write was attempted in a read-only
	// transaction
	ErrPermissionDenied ErrorCode = 13

	// ErrInvalidArgument is EINVAL
	ErrInvalidArgument ErrorCode = 22

	// ErrKeyExist indicates the key/data pair already exists
	ErrKeyExist ErrorCode = -30799

	// ErrNotFound indicates the key/data pair was not found (EOF)
	ErrNotFound ErrorCode = -30798

	// ErrCorrupted indicates the database is corrupted
	ErrCorrupted ErrorCode = -30796

	// ErrMapFull indicates the environment mapsize was reached
	ErrMapFull ErrorCode = -30792

	// ErrTxnFull indicates the transaction has too many dirty pages
	ErrTxnFull ErrorCode = -30788

	// ErrIncompatible indicates incompatible operation or flags
	ErrIncompatible ErrorCode = -30784

	// ErrBadTxn indicates the transaction is invalid
	ErrBadTxn ErrorCode = -30782

	// ErrBadValSize indicates invalid key or data size. Scratch buffers
	// report their ceiling with it.
	ErrBadValSize ErrorCode = -30781

	// ErrProblem indicates an unexpected internal error
	ErrProblem ErrorCode = -30779
)

// Error descriptions
var errorMessages = map[ErrorCode]string{
	Success:             "success",
	ErrPermissionDenied: "permission denied",
	ErrInvalidArgument:  "invalid argument",
	ErrKeyExist:         "key/data pair already exists",
	ErrNotFound:         "key/data pair not found",
	ErrCorrupted:        "database is corrupted",
	ErrMapFull:          "environment mapsize limit reached",
	ErrTxnFull:          "transaction has too many dirty pages",
	ErrIncompatible:     "incompatible operation or flags",
	ErrBadTxn:           "transaction is invalid",
	ErrBadValSize:       "invalid key or value size",
	ErrProblem:          "unexpected internal error",
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = fmt.Sprintf("unknown error code %d", code)
	}
	return &Error{Code: code, Message: msg}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

// FromEngine builds the error a Store returns for a native engine failure.
// The engine's own message is kept as the wrapped error.
func FromEngine(code ErrorCode, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapError(code, err)
}

func errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	// ErrNotFoundError is the canonical not-found value for Store
	// implementations.
	ErrNotFoundError = NewError(ErrNotFound)

	// ErrKeyExistError is the canonical key-exists value for Store
	// implementations.
	ErrKeyExistError = NewError(ErrKeyExist)

	// ErrReadOnlyError is returned by writes in a read-only transaction.
	ErrReadOnlyError = &Error{Code: ErrPermissionDenied, Message: "write in read-only transaction"}

	// ErrIncompatibleError is returned for duplicate-key operations on a
	// store without duplicate support.
	ErrIncompatibleError = NewError(ErrIncompatible)

	// ErrClosedError is returned by operations on a closed cursor.
	ErrClosedError = &Error{Code: ErrBadTxn, Message: "cursor is closed"}
)

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return Code(err) == ErrNotFound
}

// IsKeyExist returns true if the error is ErrKeyExist
func IsKeyExist(err error) bool {
	return Code(err) == ErrKeyExist
}

// IsPermissionDenied returns true for writes refused by a read-only
// transaction.
func IsPermissionDenied(err error) bool {
	return Code(err) == ErrPermissionDenied
}

// IsCapacityExceeded returns true when a scratch buffer could not hold a
// composed key or value.
func IsCapacityExceeded(err error) bool {
	return Code(err) == ErrBadValSize
}

// Code returns the error code from an error, or ErrProblem if not a bufcursor error
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrProblem
}

// BoundsError is the panic value raised when a RawView accessor reaches
// outside the wrapped region. It signals a programming error and is never
// returned.
type BoundsError struct {
	Pos   int
	Width int
	Len   int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bufcursor: access [%d:%d] out of range for view of length %d", e.Pos, e.Pos+e.Width, e.Len)
}
