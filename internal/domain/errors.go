package domain

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("domain: not found")
	ErrConflict     = errors.New("domain: conflict")
	ErrNotConnected = errors.New("domain: platform not connected")
)

// ErrorClass partitions failures by whether a retry can help.
type ErrorClass string

const (
	ErrorTransient ErrorClass = "transient"
	ErrorPermanent ErrorClass = "permanent"
)

// ClassifiedError tags an underlying failure with its retry class.
// Boundaries that talk to external systems (models, Graph API) classify
// at the point of failure; everything upstream only inspects the class.
type ClassifiedError struct {
	Class ErrorClass
	Err   error
}

func (e *ClassifiedError) Error() string {
	return string(e.Class) + ": " + e.Err.Error()
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	return &ClassifiedError{Class: ErrorTransient, Err: err}
}

// Permanent wraps err as non-retryable.
func Permanent(err error) error {
	return &ClassifiedError{Class: ErrorPermanent, Err: err}
}

// ClassOf reports the retry class of err. Deadline expiry and network
// timeouts count as transient; anything unclassified is permanent.
func ClassOf(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTransient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrorTransient
	}
	return ErrorPermanent
}
