package integrity

import (
	"errors"
	"fmt"
)

// Kind classifies every error returned by the engine. Store and storage errors never cross
// the package boundary unclassified.
type Kind uint8

const (
	Internal Kind = iota
	InvalidInput
	NotFound
	Forbidden
	UploadFailed
	// UpdateFailed means a later step failed and the compensating action succeeded
	UpdateFailed
	// OrphanDetected means the compensating action failed too and the store holds an inconsistency
	OrphanDetected
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case NotFound:
		return "not found"
	case Forbidden:
		return "forbidden"
	case UploadFailed:
		return "upload failed"
	case UpdateFailed:
		return "update failed"
	case OrphanDetected:
		return "orphan detected"
	}
	return "internal error"
}

type Error struct {
	Op   string
	Kind Kind
	Err  error
}

// Sentinels for errors.Is checks, e.g. errors.Is(err, integrity.ErrNotFound)
var (
	ErrInvalidInput   = &Error{Kind: InvalidInput}
	ErrNotFound       = &Error{Kind: NotFound}
	ErrForbidden      = &Error{Kind: Forbidden}
	ErrUploadFailed   = &Error{Kind: UploadFailed}
	ErrUpdateFailed   = &Error{Kind: UpdateFailed}
	ErrOrphanDetected = &Error{Kind: OrphanDetected}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func newError(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}
