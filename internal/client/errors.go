package client

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected     = errors.New("client: no connection to server, call Connect first")
	ErrNotAuthenticated = errors.New("client: not authenticated, call Authenticate first")
)

// Kind classifies a failed round trip.
type Kind int

const (
	// KindConnect means the endpoint could not be dialed.
	KindConnect Kind = iota + 1
	// KindIO means the request could not be written or the reply could not be read.
	KindIO
	// KindProtocol means the reply named a different command than the request.
	KindProtocol
	// KindMalformed means the reply lacked required fields.
	KindMalformed
	// KindRejected means the server answered with an error status.
	KindRejected
	// KindRequest means the request could not be encoded.
	KindRequest
)

func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindIO:
		return "io"
	case KindProtocol:
		return "protocol"
	case KindMalformed:
		return "malformed"
	case KindRejected:
		return "rejected"
	case KindRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Error describes a failed worker operation.
type Error struct {
	Op   string
	Kind Kind
	// Code is the server's statuscode for KindRejected, if it sent one.
	Code string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
