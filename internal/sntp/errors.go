package sntp

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind defines the error kind.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindAddressResolutionFailure
	KindTransportError
	KindTimeout
	KindMalformedPacket
	KindInvalidResponse
	KindReferenceResolutionFailure
)

func (k Kind) String() string {
	switch k {
	case KindAddressResolutionFailure:
		return "AddressResolutionFailure"
	case KindTransportError:
		return "TransportError"
	case KindTimeout:
		return "Timeout"
	case KindMalformedPacket:
		return "MalformedPacket"
	case KindInvalidResponse:
		return "InvalidResponse"
	case KindReferenceResolutionFailure:
		return "ReferenceResolutionFailure"
	default:
		return "Unknown"
	}
}

// Error is returned by the client. It wraps the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sntp: %s", e.Kind)
	}
	return fmt.Sprintf("sntp: %s: %s", e.Kind, e.Err)
}

// Cause returns the underlying error.
func (e *Error) Cause() error {
	return e.Err
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the given error. It returns KindUnknown when
// err does not contain an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
