package poperr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrDecode         = errors.New("decode error")
	ErrSchema         = errors.New("schema error")
	ErrAuthentication = errors.New("authentication error")
	ErrProtocol       = errors.New("protocol error")
	ErrTransport      = errors.New("transport error")
	ErrConfiguration  = errors.New("configuration error")
)

var kinds = []error{
	ErrDecode,
	ErrSchema,
	ErrAuthentication,
	ErrProtocol,
	ErrTransport,
	ErrConfiguration,
}

// Error is a classified error with an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrap(kind error, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Decodef(format string, args ...any) error         { return newf(ErrDecode, format, args...) }
func Schemaf(format string, args ...any) error         { return newf(ErrSchema, format, args...) }
func Authenticationf(format string, args ...any) error { return newf(ErrAuthentication, format, args...) }
func Protocolf(format string, args ...any) error       { return newf(ErrProtocol, format, args...) }
func Transportf(format string, args ...any) error      { return newf(ErrTransport, format, args...) }
func Configurationf(format string, args ...any) error  { return newf(ErrConfiguration, format, args...) }

// WrapDecode classifies err as a decode error. A nil err stays nil.
func WrapDecode(err error, format string, args ...any) error {
	return wrap(ErrDecode, err, format, args...)
}

// WrapSchema classifies err as a schema error. A nil err stays nil.
func WrapSchema(err error, format string, args ...any) error {
	return wrap(ErrSchema, err, format, args...)
}

// WrapProtocol classifies err as a protocol error. A nil err stays nil.
func WrapProtocol(err error, format string, args ...any) error {
	return wrap(ErrProtocol, err, format, args...)
}

// WrapAuthentication classifies err as an authentication error. A nil err stays nil.
func WrapAuthentication(err error, format string, args ...any) error {
	return wrap(ErrAuthentication, err, format, args...)
}

// WrapConfiguration classifies err as a configuration error. A nil err stays nil.
func WrapConfiguration(err error, format string, args ...any) error {
	return wrap(ErrConfiguration, err, format, args...)
}

// WrapTransport classifies err as a transport error. A nil err stays nil.
func WrapTransport(err error, format string, args ...any) error {
	return wrap(ErrTransport, err, format, args...)
}

// KindOf returns the taxonomy kind of err, or nil when err is unclassified.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Classify returns err unchanged when it already carries a kind and wraps it
// with fallback otherwise.
func Classify(err error, fallback error) error {
	if err == nil || KindOf(err) != nil {
		return err
	}
	return &Error{Kind: fallback, Err: err}
}
