package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNetworkFailure    Kind = "network_failure"
	KindAuthFailure       Kind = "auth_failure"
	KindValidationFailure Kind = "validation_failure"
	KindNotFound          Kind = "not_found"
	KindPermissionDenied  Kind = "permission_denied"
	KindRequestFailed     Kind = "request_failed"
	KindMutationFailed    Kind = "mutation_failed"
)

// Error is the client-side failure taxonomy. Op names the operation that
// failed ("create task", "login"); Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage lets the outermost *Error in a chain decide what is shown.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return UserMessage(e.Err)
	}
	return string(e.Kind)
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	msg := ""
	if err != nil {
		msg = UserMessage(err)
	}
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

func Validation(op, message string) *Error {
	return New(KindValidationFailure, op, message)
}

func Permission(op, message string) *Error {
	return New(KindPermissionDenied, op, message)
}

func NotFound(op, message string) *Error {
	return New(KindNotFound, op, message)
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

type messager interface {
	UserMessage() string
}

// UserMessage extracts the most specific human readable message from err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var m messager
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
