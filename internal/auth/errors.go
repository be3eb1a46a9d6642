package auth

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/ProgrammerDavid1234/study-hub-software-engineering/internal/backend"
)

// ErrorKind is the closed set of failures the auth service reports.
type ErrorKind int

const (
	Unknown ErrorKind = iota
	InvalidCredentials
	DuplicateEmail
	NetworkError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidCredentials:
		return "invalid_credentials"
	case DuplicateEmail:
		return "duplicate_email"
	case NetworkError:
		return "network_error"
	}
	return "unknown"
}

// Error is a classified auth failure. Message is the text the backend gave,
// unchanged.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, or Unknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Classify maps a backend or transport error onto an *Error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	out := &Error{Kind: Unknown, Message: err.Error(), Err: err}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		out.Message = apiErr.Error()
		msg := strings.ToLower(apiErr.Message)
		switch {
		case apiErr.Code == "invalid_credentials" || apiErr.Code == "invalid_grant" || msg == "invalid login credentials":
			out.Kind = InvalidCredentials
		case apiErr.Code == "user_already_exists" || apiErr.Code == "email_exists" || strings.Contains(msg, "already registered"):
			out.Kind = DuplicateEmail
		}
		return out
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.As(err, &netErr) || errors.As(err, &urlErr) {
		out.Kind = NetworkError
	}
	return out
}
