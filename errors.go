package smg

import (
	"fmt"

	"github.com/benbjohnson/smg/c"
	"github.com/pkg/errors"
)

// ErrorKind categorizes an UnrecognizedCodeError.
type ErrorKind int

// Error kinds.
const (
	// UnrecognizedType is returned when the size of a type cannot be computed.
	UnrecognizedType = ErrorKind(iota + 1)

	// NotAnLvalue is returned when an address is requested for an
	// expression that does not designate an object.
	NotAnLvalue

	// UnsupportedCode is returned for expressions the evaluator does not model.
	UnsupportedCode

	// UnknownExternalFunction is returned for calls to undeclared external
	// functions under the strict policy.
	UnknownExternalFunction
)

var errorKinds = [...]string{
	UnrecognizedType:        "unrecognized type",
	NotAnLvalue:             "not an lvalue",
	UnsupportedCode:         "unsupported code",
	UnknownExternalFunction: "unknown external function",
}

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	if k > 0 && k < ErrorKind(len(errorKinds)) {
		return errorKinds[k]
	}
	return fmt.Sprintf("ErrorKind<%d>", k)
}

// UnrecognizedCodeError aborts the evaluation of a single expression.
// The caller decides whether it aborts the whole edge.
type UnrecognizedCodeError struct {
	Kind ErrorKind
	Expr c.Expr
	Msg  string
}

// Error returns the error message.
func (e *UnrecognizedCodeError) Error() string {
	if e.Expr == nil {
		return fmt.Sprintf("smg: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("smg: %s: %s: %s", e.Kind, e.Msg, e.Expr)
}

func newError(kind ErrorKind, expr c.Expr, format string, args ...interface{}) error {
	return errors.WithStack(&UnrecognizedCodeError{
		Kind: kind,
		Expr: expr,
		Msg:  fmt.Sprintf(format, args...),
	})
}

// ErrorKindOf returns the kind of an UnrecognizedCodeError anywhere in err's chain.
func ErrorKindOf(err error) (ErrorKind, bool) {
	var e *UnrecognizedCodeError
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsNotAnLvalue returns true if err was caused by an address request on a
// non-lvalue expression.
func IsNotAnLvalue(err error) bool {
	kind, ok := ErrorKindOf(err)
	return ok && kind == NotAnLvalue
}

// IsUnrecognizedType returns true if err was caused by an unsizable type.
func IsUnrecognizedType(err error) bool {
	kind, ok := ErrorKindOf(err)
	return ok && kind == UnrecognizedType
}
