package d

import (
	"errors"
	"fmt"
	"runtime"
)

// WrappedError is an error that remembers the stack at which it was raised.
// Panics carrying a WrappedError are recoverable via Try and TryCatch; all
// other panics propagate.
type WrappedError interface {
	error
	Cause() error
	Stack() []byte
}

type wrappedError struct {
	cause error
	stack []byte
}

func (we wrappedError) Error() string { return we.cause.Error() }
func (we wrappedError) Cause() error  { return we.cause }
func (we wrappedError) Stack() []byte { return we.stack }

func stack() []byte {
	buf := make([]byte, 4096)
	return buf[:runtime.Stack(buf, false)]
}

// Wrap err in a WrappedError, capturing the current stack unless err is
// already wrapped. Wrap(nil) returns nil.
func Wrap(err error) WrappedError {
	if err == nil {
		return nil
	}
	if we, ok := err.(WrappedError); ok {
		return we
	}
	return wrappedError{cause: err, stack: stack()}
}

// Unwrap returns the cause of err if it is a WrappedError, else err itself.
func Unwrap(err error) error {
	if we, ok := err.(WrappedError); ok {
		return we.Cause()
	}
	return err
}

// Try runs f, converting panics raised through Exp, Panic or PanicIf* into
// the returned error.
func Try(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			we, ok := r.(wrappedError)
			if !ok {
				panic(r)
			}
			err = we
		}
	}()
	f()
	return
}

// TryCatch runs body; a recoverable panic is passed to catch, whose result
// becomes the returned error. A nil catch returns the recovered error as-is.
func TryCatch(body func(), catch func(err error) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			we, ok := r.(wrappedError)
			if !ok {
				panic(r)
			}
			if catch != nil {
				err = catch(we)
			} else {
				err = we
			}
		}
	}()
	body()
	return
}

// Panic wraps an error built from format and args and panics with it.
func Panic(format string, args ...interface{}) {
	if len(args) == 0 {
		panic(Wrap(errors.New(format)))
	}
	panic(Wrap(fmt.Errorf(format, args...)))
}

// PanicIfError panics with a wrapped err when err is not nil.
func PanicIfError(err error) {
	if err != nil {
		panic(Wrap(err))
	}
}

// PanicIfTrue panics when b is true. Optional args are a format string and
// its arguments.
func PanicIfTrue(b bool, args ...interface{}) {
	if b {
		panic(Wrap(errFromArgs("expected false", args)))
	}
}

// PanicIfFalse panics when b is false.
func PanicIfFalse(b bool, args ...interface{}) {
	if !b {
		panic(Wrap(errFromArgs("expected true", args)))
	}
}

func errFromArgs(def string, args []interface{}) error {
	if len(args) == 0 {
		return errors.New(def)
	}
	format, ok := args[0].(string)
	Chk.True(ok, "first arg must be a format string")
	return fmt.Errorf(format, args[1:]...)
}
