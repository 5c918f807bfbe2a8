package errors

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

type Kind int

const (
	KindInternal Kind = iota
	KindRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimit
)

// Status returns the HTTP status code the kind is reported with.
func (k Kind) Status() int {
	switch k {
	case KindRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) Name() string {
	switch k {
	case KindInternal:
		return "Internal Server Error"
	case KindRateLimit:
		return "Too Many Requests"
	default:
		return "Request Error"
	}
}

// Error is a client-facing failure. Message is safe to return.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrSessionExpired      = New(KindRequest, "session expired")
	ErrEmailAlreadyExists  = New(KindRequest, "email already exist")
	ErrPhoneAlreadyExists  = New(KindRequest, "phone already exist")
	ErrEmailNotFound       = New(KindRequest, "email doesn't exist")
	ErrPhoneNotFound       = New(KindRequest, "phone number doesn't exist")
	ErrIdentifierRequired  = New(KindRequest, "email or phone number is required")
	ErrPasswordRequired    = New(KindRequest, "password is required")
	ErrInvalidPassword     = New(KindRequest, "invalid password")
	ErrUserAlreadyExists   = New(KindRequest, "user already exists")
	ErrOtpRequired         = New(KindRequest, "otp is required")
	ErrInvalidOtp          = New(KindRequest, "invalid otp")
	ErrInvalidReset        = New(KindRequest, "invalid reset")
	ErrOtpExpired          = New(KindRequest, "otp has expired")
	ErrInvalidPasscode     = New(KindRequest, "invalid passcode")
	ErrOtpNotFound         = New(KindRequest, "no otp found")
	ErrInvalidInput        = New(KindRequest, "invalid input")
	ErrStatusRequired      = New(KindRequest, "status is required")
	ErrInvalidStatus       = New(KindRequest, "invalid status")
	ErrReasonRequired      = New(KindRequest, "reason is required")
	ErrUserIDRequired      = New(KindRequest, "user id is required")
	ErrLoginRequired       = New(KindUnauthorized, "please login to continue")
	ErrInvalidToken        = New(KindUnauthorized, "invalid token")
	ErrOtpNotVerified      = New(KindForbidden, "otp verification required")
	ErrAccountInactive     = New(KindForbidden, "user account is currently inactive. please contact support for assistance")
	ErrDeleteAlreadyFiled  = New(KindForbidden, "delete account request already submitted")
	ErrUserNotFound        = New(KindNotFound, "user not found")
	ErrAccountDeleted      = New(KindNotFound, "your account has been permanently deleted. all associated data will be removed from our servers within 30 working days")
	ErrAccountDeletedToken = New(KindForbidden, ErrAccountDeleted.Message)
)

// Request builds a 400 error with a custom message, used for validator output.
func Request(message string) *Error {
	return New(KindRequest, strings.ToLower(message))
}

// MissingFields lists absent body fields by the names the client sent.
func MissingFields(fields []string) *Error {
	return New(KindRequest, "missing fields: "+strings.Join(fields, ", "))
}

// RateLimit reports the remaining resend wait, rounded up to whole seconds.
func RateLimit(wait time.Duration) *Error {
	secs := int64(math.Ceil(wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return New(KindRateLimit, fmt.Sprintf("please wait %d seconds before resending otp", secs))
}

// RoleForbidden is returned when a role is not allowed on a route.
func RoleForbidden(role string) *Error {
	return New(KindForbidden, fmt.Sprintf("%s cannot access this resource", role))
}

// RoleInactive is the middleware flavour of the inactive account error.
func RoleInactive(role string) *Error {
	return New(KindForbidden, fmt.Sprintf("%s account is currently inactive. please contact support for assistance", role))
}

// Internal wraps any collaborator failure. Errors that are already typed pass through unchanged.
func Internal(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	msg := strings.ToLower(err.Error())
	if msg == "" {
		msg = "an unknown error occurred"
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// StatusOf maps any error onto its HTTP status.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind.Status()
	}
	return http.StatusInternalServerError
}
