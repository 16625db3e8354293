package storage

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the engine can return.
type Kind uint8

const (
	KindSystemError Kind = iota
	KindFileNotFound
	KindFileAlreadyExists
	KindInvalidOperation
	KindStorageLimit
	KindInvalidFileType
)

var kindNames = map[Kind]string{
	KindSystemError:       "SystemError",
	KindFileNotFound:      "FileNotFound",
	KindFileAlreadyExists: "FileAlreadyExists",
	KindInvalidOperation:  "InvalidOperation",
	KindStorageLimit:      "StorageLimit",
	KindInvalidFileType:   "InvalidFileType",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return KindSystemError, false
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrFileNotFound      = &Error{Kind: KindFileNotFound}
	ErrFileAlreadyExists = &Error{Kind: KindFileAlreadyExists}
	ErrInvalidOperation  = &Error{Kind: KindInvalidOperation}
	ErrStorageLimit      = &Error{Kind: KindStorageLimit}
	ErrInvalidFileType   = &Error{Kind: KindInvalidFileType}
	ErrSystem            = &Error{Kind: KindSystemError}
)

// Error is the only error type returned by the engine.
type Error struct {
	Kind Kind
	Op   string // engine operation, e.g. "upload"
	Name string // file name, if any
	Err  error  // underlying detail, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Name != "" {
		msg += fmt.Sprintf(" (%q)", e.Name)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that errors.Is(err, ErrFileNotFound) works
// for any *Error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or KindSystemError if err was not
// produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystemError
}

func newError(kind Kind, op, name string, format string, args ...any) *Error {
	var detail error
	if format != "" {
		detail = fmt.Errorf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Name: name, Err: detail}
}
