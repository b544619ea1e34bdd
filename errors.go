package dspxml

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error. Each kind maps to a distinct process exit code.
type Kind uint8

const (
	// KindUnknown is reported for errors which did not originate as an
	// Error.
	KindUnknown Kind = iota
	// KindInput is malformed configuration, a missing required attribute, a
	// duplicate key or an unknown command.
	KindInput
	// KindParsing is a value which does not match its declared type or
	// pattern, an unresolved column reference, a header classification
	// conflict or a cycle.
	KindParsing
	// KindNotFound is a resource, property or list reference missing from
	// the data model.
	KindNotFound
	// KindMethod is a per-row violation inside a column operator.
	KindMethod
	// KindIO is a failure reading or writing files.
	KindIO
	// KindAPI is an authentication or network failure.
	KindAPI
)

var kindNames = [...]string{
	KindUnknown:  "error",
	KindInput:    "input error",
	KindParsing:  "parsing error",
	KindNotFound: "not found",
	KindMethod:   "method error",
	KindIO:       "io error",
	KindAPI:      "api error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ExitCode is the process exit status used by the command line for errors of
// this kind.
func (k Kind) ExitCode() int {
	if k == KindUnknown {
		return 1
	}
	return int(k) + 1
}

// Method names the column operator which raised a KindMethod error.
type Method string

const (
	MethodCombine  Method = "combine"
	MethodSeparate Method = "separate"
	MethodIdentify Method = "identify"
	MethodCreate   Method = "create"
	MethodAlter    Method = "alter"
	MethodToDate   Method = "to_date"
)

// Error is the error type returned by every stage of the conversion. Context
// such as sheet, row and column is attached by wrapping it with
// errors.Wrapf; KindOf recovers the kind from anywhere in the chain.
type Error struct {
	Kind   Kind
	Method Method
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Method != "" {
		msg += " in " + string(e.Method)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first Error found in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// InputErrorf returns a KindInput error.
func InputErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: KindInput, Detail: fmt.Sprintf(format, args...)})
}

// ParsingErrorf returns a KindParsing error.
func ParsingErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: KindParsing, Detail: fmt.Sprintf(format, args...)})
}

// NotFoundErrorf returns a KindNotFound error.
func NotFoundErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)})
}

// MethodErrorf returns a KindMethod error raised by the operator m.
func MethodErrorf(m Method, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: KindMethod, Method: m, Detail: fmt.Sprintf(format, args...)})
}

// IOError wraps err as a KindIO error. It returns nil if err is nil.
func IOError(err error, detail string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: KindIO, Detail: detail, Err: err})
}

// APIError wraps err as a KindAPI error. A nil err produces an error with
// only the detail.
func APIError(err error, detail string) error {
	return errors.WithStack(&Error{Kind: KindAPI, Detail: detail, Err: err})
}
