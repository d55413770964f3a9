package services

import "errors"

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
)

// NonFieldErrors keys rejections that are not tied to a single input field.
const NonFieldErrors = "non_field_errors"

const forbiddenMessage = "You are not authorized to perform this action."

// Error is a business-rule rejection. Anything else returned by a service is an
// unexpected store failure.
type Error struct {
	Kind    ErrorKind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func Validation(field, message string) error {
	if field == "" {
		field = NonFieldErrors
	}
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Forbidden carries a fixed message so callers learn nothing about why.
func Forbidden() error {
	return &Error{Kind: KindForbidden, Message: forbiddenMessage}
}

func Conflict(field, message string) error {
	if field == "" {
		field = NonFieldErrors
	}
	return &Error{Kind: KindConflict, Field: field, Message: message}
}

// AsError unwraps err into a service Error.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func IsKind(err error, kind ErrorKind) bool {
	se, ok := AsError(err)
	return ok && se.Kind == kind
}
