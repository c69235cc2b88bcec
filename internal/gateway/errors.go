package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a surfaced fetch failure.
type ErrorKind int

const (
	InvalidRequest ErrorKind = iota + 1
	Throttled
	Server
	Decode
	Network
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid request"
	case Throttled:
		return "throttled"
	case Server:
		return "server error"
	case Decode:
		return "decode error"
	case Network:
		return "network error"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is against an *Error of the matching kind.
var (
	ErrInvalidRequest = errors.New("gateway: invalid request")
	ErrThrottled      = errors.New("gateway: throttled")
	ErrServer         = errors.New("gateway: server error")
	ErrDecode         = errors.New("gateway: decode error")
	ErrNetwork        = errors.New("gateway: network error")
	ErrCancelled      = errors.New("gateway: cancelled")
)

var sentinels = map[ErrorKind]error{
	InvalidRequest: ErrInvalidRequest,
	Throttled:      ErrThrottled,
	Server:         ErrServer,
	Decode:         ErrDecode,
	Network:        ErrNetwork,
	Cancelled:      ErrCancelled,
}

// Error is returned by Fetch for failures that could not be absorbed.
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway: %s: %s", e.Endpoint, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// KindOf returns the ErrorKind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}
