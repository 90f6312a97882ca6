package errprocess

import (
	"errors"
)

// Kind classifies service errors so callers can map them to a response
// without string matching.
type Kind int

const (
	// KindUnknown unclassified error
	KindUnknown Kind = iota
	// KindValidation malformed input, rejected before any side effect
	KindValidation
	// KindAuthorization caller is not allowed, rejected before any side effect
	KindAuthorization
	// KindNotFound target record absent
	KindNotFound
	// KindTransientStore persistence timeout/failure, safe to retry
	KindTransientStore
)

// Error service error with a kind
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

// Validation create a validation error
func Validation(msg string) error {
	return &Error{kind: KindValidation, msg: msg}
}

// Authorization create an authorization error
func Authorization(msg string) error {
	return &Error{kind: KindAuthorization, msg: msg}
}

// NotFound create a not-found error
func NotFound(msg string) error {
	return &Error{kind: KindNotFound, msg: msg}
}

// TransientStore create a transient store error
func TransientStore(msg string) error {
	return &Error{kind: KindTransientStore, msg: msg}
}

// KindOf report the kind of err, KindUnknown for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// IsValidation check err is a validation error
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsAuthorization check err is an authorization error
func IsAuthorization(err error) bool { return KindOf(err) == KindAuthorization }

// IsNotFound check err is a not-found error
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsTransientStore check err is a transient store error
func IsTransientStore(err error) bool { return KindOf(err) == KindTransientStore }
