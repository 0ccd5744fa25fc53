package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed retrieval attempt
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTimeout
	KindNetwork
	KindHTTPStatus
	KindEmptyBody
	KindUnwrapFailed
	KindValidationRejected
)

var kindNames = map[ErrorKind]string{
	KindNone:               "none",
	KindTimeout:            "timeout",
	KindNetwork:            "network_error",
	KindHTTPStatus:         "http_status",
	KindEmptyBody:          "empty_body",
	KindUnwrapFailed:       "unwrap_failed",
	KindValidationRejected: "validation_rejected",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON logs
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

var (
	// ErrInvalidInput is returned when the address normalizes to nothing
	ErrInvalidInput = errors.New("invalid URL, please enter a valid domain")
	// ErrNotFound is returned once every attempt has been exhausted
	ErrNotFound = errors.New("no ads.txt found for this domain")
)

// AttemptError is a recoverable failure of a single attempt
type AttemptError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *AttemptError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case KindTimeout:
		return "request timed out"
	case KindEmptyBody:
		return "empty response"
	case KindValidationRejected:
		return "invalid content"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// NewAttemptError builds an AttemptError of the given kind
func NewAttemptError(kind ErrorKind, err error) *AttemptError {
	return &AttemptError{Kind: kind, Err: err}
}

// AsAttemptError returns the AttemptError inside err, or wraps err as a
// NetworkError when it carries none
func AsAttemptError(err error) *AttemptError {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae
	}
	return NewAttemptError(KindNetwork, err)
}

// KindOf extracts the ErrorKind from err, NetworkError for anything unclassified
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindNetwork
}

// NotFoundError is the terminal failure of a retrieval; it keeps the attempt log
// for diagnostics only.
type NotFoundError struct {
	Domain   string
	Attempts []Attempt
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s (%s, %d attempts)", ErrNotFound.Error(), e.Domain, len(e.Attempts))
}

// Is lets errors.Is(err, ErrNotFound) match
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
