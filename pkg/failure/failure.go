// Package failure defines the error kinds surfaced to callers of the agent.
//
// Each kind is a sentinel error. Errors built with [Wrap] unwrap to both their
// kind and their cause, so errors.Is matches the outer kind as well as any kind
// further down the chain.
package failure

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration        = errors.New("configuration error")
	ErrAuthorizationTimeout = errors.New("authorization timeout")
	ErrServiceUnavailable   = errors.New("service unavailable")
	ErrConnection           = errors.New("connection error")
	ErrModelInvocation      = errors.New("model invocation error")
	ErrToolExecution        = errors.New("tool execution error")
)

// kinds lists each kind with the name printed for operators. The order is
// the precedence KindName uses when a chain carries several kinds and none of
// them is the outermost *Error.
var kinds = []struct {
	kind error
	name string
}{
	{ErrConfiguration, "ConfigurationError"},
	{ErrConnection, "ConnectionError"},
	{ErrAuthorizationTimeout, "AuthorizationTimeout"},
	{ErrServiceUnavailable, "ServiceUnavailable"},
	{ErrModelInvocation, "ModelInvocationError"},
	{ErrToolExecution, "ToolExecutionError"},
}

// Error attaches a kind and the failing operation to a cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// Wrap returns an *Error of the given kind. A nil err yields an *Error whose
// message is the kind itself.
func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an *Error of the given kind from a formatted message.
func Newf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns the operator-facing name of the outermost kind in err's
// chain, or "Error" when err carries no known kind.
func KindName(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		for _, k := range kinds {
			if fe.Kind == k.kind {
				return k.name
			}
		}
	}
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "Error"
}

// Message returns the human-readable part of err without the kind prefix
// added by Error.Error.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Err != nil {
		if fe.Op != "" {
			return fe.Op + ": " + fe.Err.Error()
		}
		return fe.Err.Error()
	}
	return err.Error()
}
