// Package apperr is the error taxonomy shared by the identity services.
// Every fallible operation returns an *Error (or wraps one) so transports can
// map failures to responses with errors.Is / KindOf.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation         Kind = "validation"
	KindConflict           Kind = "conflict"
	KindNotFound           Kind = "not_found"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindEmailNotVerified   Kind = "email_not_verified"
	KindDelivery           Kind = "delivery"
	KindExternalProvider   Kind = "external_provider"
	KindInternal           Kind = "internal"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrDelivery           = errors.New("delivery failed")
	ErrExternalProvider   = errors.New("external provider error")
	ErrInternal           = errors.New("internal error")
)

var sentinels = map[Kind]error{
	KindValidation:         ErrValidation,
	KindConflict:           ErrConflict,
	KindNotFound:           ErrNotFound,
	KindInvalidCredentials: ErrInvalidCredentials,
	KindEmailNotVerified:   ErrEmailNotVerified,
	KindDelivery:           ErrDelivery,
	KindExternalProvider:   ErrExternalProvider,
	KindInternal:           ErrInternal,
}

type Error struct {
	Kind    Kind
	Op      string // e.g. "local.start"
	Message string // safe to show to end users
	Field   string // optional: offending input field
	Body    string // raw upstream body, for logs only
	Err     error  // cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrConflict) match on kind regardless of cause.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

func newErr(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

func Validation(op, field, message string) *Error {
	e := newErr(KindValidation, op, message, nil)
	e.Field = field
	return e
}

func Conflict(op, message string) *Error {
	return newErr(KindConflict, op, message, nil)
}

func NotFound(op, message string) *Error {
	return newErr(KindNotFound, op, message, nil)
}

func InvalidCredentials(op string) *Error {
	return newErr(KindInvalidCredentials, op, "Invalid email or password", nil)
}

func EmailNotVerified(op string) *Error {
	return newErr(KindEmailNotVerified, op, "Email not verified. Please verify your email first.", nil)
}

func Delivery(op string, cause error) *Error {
	return newErr(KindDelivery, op, "Failed to send verification email", cause)
}

// ExternalProvider keeps the upstream body for diagnostics. Message stays generic.
func ExternalProvider(op string, body string, cause error) *Error {
	e := newErr(KindExternalProvider, op, "Identity provider request failed", cause)
	e.Body = body
	return e
}

func Internal(op string, cause error) *Error {
	return newErr(KindInternal, op, "Internal server error", cause)
}

// KindOf reports the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
