package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by oracles and caches when the key is unknown
	ErrNotFound = errors.New("not found")
	// ErrExpired is returned by caches when an entry outlived its TTL
	ErrExpired = errors.New("cache entry expired")
	// ErrNoClassifier marks an engine built without a classifier
	ErrNoClassifier = errors.New("no classifier configured")
)

// InputError is returned when a required email field is missing or invalid
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// SignalTimeoutError marks a signal source that exceeded its time budget
type SignalTimeoutError struct {
	Source string
	Err    error
}

func (e *SignalTimeoutError) Error() string {
	return fmt.Sprintf("%s timed out: %v", e.Source, e.Err)
}

func (e *SignalTimeoutError) Unwrap() error {
	return e.Err
}

// SignalTransportError marks a signal source that failed at the network or API level
type SignalTransportError struct {
	Source string
	Err    error
}

func (e *SignalTransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Source, e.Err)
}

func (e *SignalTransportError) Unwrap() error {
	return e.Err
}

// ClassifierError marks a classifier oracle that could not produce a score
type ClassifierError struct {
	Model string
	Err   error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier %s unavailable: %v", e.Model, e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}

// SignalError classifies a failure of the named source as a timeout or a transport error
func SignalError(source string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SignalTimeoutError{Source: source, Err: err}
	}
	return &SignalTransportError{Source: source, Err: err}
}
