// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"errors"
	"fmt"
)

var (
	// ErrPeerGone means the player no longer owns its name on the bus.
	ErrPeerGone = errors.New("player left the bus")

	// ErrUnsupported means the player does not implement a property or
	// method. Optional properties fall back to their defaults.
	ErrUnsupported = errors.New("not supported by player")

	// ErrClosed is returned by Engine.Next once the event stream has ended.
	ErrClosed = errors.New("event stream closed")
)

// DecodeError reports a signal payload that could not be understood. The
// payload is dropped.
type DecodeError struct {
	Signal string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Signal, e.Reason)
}

// FieldTypeError reports a metadata field whose wire type did not match.
type FieldTypeError struct {
	Field string
	Got   Kind
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("metadata field %s: unexpected type %s", e.Field, e.Got)
}

// FieldRangeError reports a metadata field whose value was out of range and
// got clamped.
type FieldRangeError struct {
	Field string
	Value string
}

func (e *FieldRangeError) Error() string {
	return fmt.Sprintf("metadata field %s: value %s out of range", e.Field, e.Value)
}

// TransportError wraps a failed call, read or write on the bus.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func wrapTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
