package util

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this module matches exactly one of
// these through errors.Is.
var (
	ErrIO                   = errors.New("io error")
	ErrEOF                  = errors.New("end of file")
	ErrFileNotFound         = errors.New("file not found")
	ErrLock                 = errors.New("lock error")
	ErrNotImplemented       = errors.New("not implemented")
	ErrArgument             = errors.New("invalid argument")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrMemory               = errors.New("out of memory")
)

/*
Error attaches a message, and optionally an underlying cause, to one of
the error kinds above. Both the kind and the cause are visible to
errors.Is and errors.As.
*/
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Errorf(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError classifies err under kind. A nil err stays nil.
func WrapError(kind error, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func assert1(ok bool) {
	assert2(ok, "assert fail")
}

func assert2(ok bool, msg string, args ...interface{}) {
	if !ok {
		panic(fmt.Sprintf(msg, args...))
	}
}
