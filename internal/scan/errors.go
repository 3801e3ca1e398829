package scan

import (
	"errors"
	"fmt"
)

// Kind classifies core failures
type Kind string

const (
	KindValidation   Kind = "validation"    // Malformed input, rejected before any write
	KindNotFound     Kind = "not_found"     // Session, device or conflict absent
	KindForbidden    Kind = "forbidden"     // Tenant mismatch or insufficient role
	KindInvalidState Kind = "invalid_state" // Session not in the expected lifecycle state
	KindSyncItem     Kind = "sync_item"     // One offline session failed
	KindInternal     Kind = "internal"      // Storage or other unexpected failure
)

// Error is the error type returned by Service operations
type Error struct {
	Kind     Kind
	Op       string
	Msg      string
	Field    string
	Resource string
	Err      error
}

// Sentinels for errors.Is
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrSyncItem     = &Error{Kind: KindSyncItem}
	ErrInternal     = &Error{Kind: KindInternal}
)

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Field)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func validationError(op, field, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Msg: msg}
}

func notFound(op, resource string) error {
	return &Error{Kind: KindNotFound, Op: op, Resource: resource, Msg: resource + " not found"}
}

func forbidden(op, msg string) error {
	return &Error{Kind: KindForbidden, Op: op, Msg: msg}
}

func invalidState(op, msg string) error {
	return &Error{Kind: KindInvalidState, Op: op, Msg: msg}
}

func internal(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

func syncItem(localID string, err error) error {
	return &Error{Kind: KindSyncItem, Msg: fmt.Sprintf("offline session %q", localID), Err: err}
}
