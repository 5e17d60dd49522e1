package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call.
type Kind int

const (
	// KindTransport means no response was received.
	KindTransport Kind = iota
	// KindServer means a non-2xx response was received.
	KindServer
	// KindShape means the response body was not the expected shape.
	KindShape
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindShape:
		return "shape"
	default:
		return "unknown"
	}
}

// Error is the single normalized error returned by Client. Message is meant
// for display.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

func transportError(op string, err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Op:      op,
		Message: fmt.Sprintf("%s: backend unreachable", op),
		Err:     err,
	}
}

func serverError(op string, status int, detail string) *Error {
	msg := fmt.Sprintf("%s: server returned %d", op, status)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", op, detail)
	}
	return &Error{Kind: KindServer, Op: op, Status: status, Message: msg}
}

func shapeError(op string, err error) *Error {
	return &Error{
		Kind:    KindShape,
		Op:      op,
		Message: fmt.Sprintf("%s: unexpected response format", op),
		Err:     err,
	}
}
