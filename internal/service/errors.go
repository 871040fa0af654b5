package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for the transport layer
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindUnauthorized
	KindNotFound
	KindBadRequest
	KindUnprocessable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnprocessable:
		return "unprocessable"
	default:
		return "internal"
	}
}

// Error is a failure whose Message is safe to show to the caller
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Errors returned by the services. Compare with errors.Is.
var (
	ErrEmailTaken         = &Error{Kind: KindConflict, Message: "Користувач з таким email вже існує"}
	ErrUsernameTaken      = &Error{Kind: KindConflict, Message: "Користувач з таким іменем вже існує"}
	ErrContactEmailTaken  = &Error{Kind: KindConflict, Message: "Contact with this email already exists"}
	ErrBadCredentials     = &Error{Kind: KindUnauthorized, Message: "Неправильний логін або пароль"}
	ErrEmailNotConfirmed  = &Error{Kind: KindUnauthorized, Message: "Електронна адреса не підтверджена"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "Could not validate credentials"}
	ErrInvalidRefresh     = &Error{Kind: KindUnauthorized, Message: "Invalid or expired refresh token"}
	ErrVerification       = &Error{Kind: KindBadRequest, Message: "Verification error"}
	ErrInvalidEmailToken  = &Error{Kind: KindUnprocessable, Message: "Неправильний токен для перевірки електронної пошти"}
	ErrContactNotFound    = &Error{Kind: KindNotFound, Message: "Contact not found"}
)

// Messages returned by the email confirmation flow
const (
	MsgEmailConfirmed        = "Електронну пошту підтверджено"
	MsgEmailAlreadyConfirmed = "Ваша електронна пошта вже підтверджена"
	MsgCheckEmail            = "Перевірте свою електронну пошту для підтвердження"
)

// ValidationError reports a request that passed binding but violates a service rule
func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindInternal when err is not a service error
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
