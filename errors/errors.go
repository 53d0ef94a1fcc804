package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode tags the class of a failure. Callers branch on the code, never on
// the message text.
type ErrorCode int

const (
	// Internal marks invariant violations, unsupported type/op combinations
	// and reads of an uninitialised result cache. Fatal to the current query.
	Internal ErrorCode = iota + 1
	// Arity marks a wrong number of children at construction time.
	Arity
	// Type marks a failed type check while resolving return types.
	Type
	// Cancelled marks cooperative cancellation between blocks.
	Cancelled
	BadArguments
	UnknownColumn
	NotImplemented
	IO
)

func (c ErrorCode) String() string {
	switch c {
	case Internal:
		return "Internal"
	case Arity:
		return "Arity"
	case Type:
		return "Type"
	case Cancelled:
		return "Cancelled"
	case BadArguments:
		return "BadArguments"
	case UnknownColumn:
		return "UnknownColumn"
	case NotImplemented:
		return "NotImplemented"
	case IO:
		return "IO"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is the error type returned by every package of the engine.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // underlying cause, may be nil
}

// Error renders "<Code>: <Message>[: <cause>]". Match message text with
// MessageOf, not Error.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
// errors.Is(err, errors.New(errors.Internal, "")) matches any internal error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func NewError(code ErrorCode, format string, args ...any) *Error {
	return newError(code, nil, format, args...)
}

// Wrap attaches a code and a message to err. A nil err yields nil.
func Wrap(code ErrorCode, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return newError(code, err, format, args...)
}

func ErrInternal(format string, args ...any) *Error {
	return newError(Internal, nil, format, args...)
}

func ErrArity(format string, args ...any) *Error {
	return newError(Arity, nil, format, args...)
}

func ErrType(format string, args ...any) *Error {
	return newError(Type, nil, format, args...)
}

func ErrCancelled(cause error) *Error {
	return newError(Cancelled, cause, "query cancelled")
}

func ErrBadArguments(format string, args ...any) *Error {
	return newError(BadArguments, nil, format, args...)
}

func ErrUnknownColumn(name string) *Error {
	return newError(UnknownColumn, nil, "column %q not found", name)
}

func ErrNotImplemented(format string, args ...any) *Error {
	return newError(NotImplemented, nil, format, args...)
}

func ErrIO(err error, format string, args ...any) *Error {
	return newError(IO, err, format, args...)
}

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// MessageOf returns the bare message of the first *Error in err's chain,
// without the code prefix. Falls back to err.Error(). Callers checking what
// an error says, e.g. that it begins with "Cannot do data_array", use this.
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// forwarders so callers only import this package.

func New(text string) error {
	return stderrors.New(text)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
