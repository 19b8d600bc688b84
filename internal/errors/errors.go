package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the client. Every error leaving the auth, sessions,
// transport and chat packages matches exactly one of these with Is.
var (
	// Local, pre-network failures (bad email or password shape)
	ErrValidation = errors.New("validation error")

	// The backend answered but refused the credentials
	ErrInvalidCredentials = errors.New("invalid credentials")

	// No response at all: timeout, DNS, connection refused
	ErrNetwork = errors.New("network error")

	// 5xx or a response that could not be interpreted
	ErrServer = errors.New("server unavailable")

	// Refresh path exhausted, the local session has been cleared
	ErrSessionExpired = errors.New("session expired")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrLoginInProgress  = errors.New("login already in progress")

	// Storage errors
	ErrStorage = errors.New("credential storage error")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported operation")
)

// Error carries an error kind, the operation that failed and an optional
// message that is safe to show to the user.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

// New creates an Error of the given kind.
func New(kind error, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// E wraps err with a kind and operation.
func E(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + " " + msg
	}
	return msg
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage renders err as a short human readable sentence for alerts.
// Operation prefixes and causes are never included.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "Please check the email and password you entered."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrNetwork):
		return "Connection error. Check your internet connection."
	case errors.Is(err, ErrServer):
		return "The server is unavailable. Try again later."
	case errors.Is(err, ErrSessionExpired):
		return "Your session expired. Please log in again."
	case errors.Is(err, ErrNotAuthenticated):
		return "You need to log in first."
	case errors.Is(err, ErrLoginInProgress):
		return "A login is already in progress."
	case errors.Is(err, ErrStorage):
		return "Could not access secure storage."
	}
	return "An unexpected error occurred."
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
