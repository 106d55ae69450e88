package client

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind classifies a failed call. All kinds are shown to the user the same
// way; only the message differs.
type Kind string

const (
	// KindValidation is a local rejection; no request was sent.
	KindValidation Kind = "validation"
	// KindTransport means the request never completed or the response was unusable.
	KindTransport Kind = "transport"
	// KindApplication is a non-2xx response from the backend.
	KindApplication Kind = "application"
)

// Error is the error result of every Client method.
type Error struct {
	Kind    Kind   `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error returns the user-facing message.
func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a local rejection error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// newTransportError builds the user-facing message without the request URL
// or dialed address, which would reveal the backend origin.
func newTransportError(prefix string, cause error) *Error {
	shown := cause
	var ue *url.Error
	if errors.As(shown, &ue) && ue.Err != nil {
		shown = ue.Err
	}
	var oe *net.OpError
	if errors.As(shown, &oe) && oe.Err != nil {
		shown = oe.Err
	}
	return &Error{
		Kind:    KindTransport,
		Message: fmt.Sprintf("%s: %v", prefix, shown),
		Err:     cause,
	}
}

// KindOf returns the Kind of err, or "" when err is not a client error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
