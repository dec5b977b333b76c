package rapi

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindRequestFailed ErrorKind = iota + 1
	KindUnexpectedResponse
	KindOperationFailed
	KindParseError
)

func (k ErrorKind) String() string {
	switch k {
	case KindRequestFailed:
		return "RequestFailed"
	case KindUnexpectedResponse:
		return "UnexpectedResponse"
	case KindOperationFailed:
		return "OperationFailed"
	case KindParseError:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// Error is the failure reported for a single RAPI round trip.
type Error struct {
	Kind    ErrorKind
	Command string
	Message string
	Err     error
}

var (
	ErrRequestFailed      = &Error{Kind: KindRequestFailed}
	ErrUnexpectedResponse = &Error{Kind: KindUnexpectedResponse}
	ErrOperationFailed    = &Error{Kind: KindOperationFailed}
	ErrParseError         = &Error{Kind: KindParseError}

	ErrChecksumMismatch = errors.New("checksum mismatch")
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Command != "" {
		msg = fmt.Sprintf("%s: %s", e.Command, msg)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func RequestFailed(command string, err error) *Error {
	return &Error{Kind: KindRequestFailed, Command: command, Err: err}
}

func ParseError(message string) *Error {
	return newError(KindParseError, message, nil)
}

// KindOf returns the kind of a RAPI error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var rapiErr *Error
	if errors.As(err, &rapiErr) {
		return rapiErr.Kind
	}
	return 0
}

// WithCommand stamps the command onto err if it is a RAPI error without one.
func WithCommand(err error, command string) error {
	var rapiErr *Error
	if errors.As(err, &rapiErr) && rapiErr.Command == "" {
		copied := *rapiErr
		copied.Command = command
		return &copied
	}
	return err
}
