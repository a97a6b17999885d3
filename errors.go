// Copyright 2026 The OpenLIN Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lin

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"time"
)

// Error categories, grouped by how callers are expected to react.
var (
	// Protocol errors - recoverable, delivered through the error sink,
	// scheduling continues.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrIdentifierParity = errors.New("identifier parity error")
	ErrFraming          = errors.New("framing error")
	ErrShortFrame       = errors.New("short frame")
	ErrNoResponse       = errors.New("no response")

	// Adapter errors - hardware reported, potentially retryable.
	ErrReceiveTimeout = errors.New("receive timeout")
	ErrAdapterWrite   = errors.New("adapter write failed")
	ErrAdapterRead    = errors.New("adapter read failed")
	ErrAdapterClosed  = errors.New("adapter is closed")

	// Configuration errors - fail synchronously at construction or
	// activation, never during an active schedule.
	ErrInvalidIdentifier = errors.New("invalid frame identifier")
	ErrInvalidLength     = errors.New("invalid frame data length")
	ErrEmptySchedule     = errors.New("schedule table is empty")
	ErrChecksumKind      = errors.New("mismatched checksum kind")
	ErrAdapterClaimed    = errors.New("adapter is already owned by a session")
	ErrUnknownIdentifier = errors.New("identifier not present in table")

	// Flow control errors - caller facing, fail synchronously.
	ErrQueueFull = errors.New("diagnostic queue full")
)

// BusErrorKind tags the protocol error variants that can be observed on an
// active bus. Every BusError is attributed to a frame identifier and a
// timestamp.
type BusErrorKind int

const (
	// NoResponse: the response timeout elapsed with no bytes on the bus.
	NoResponse BusErrorKind = iota
	// ChecksumMismatch: the transmitted checksum did not match the
	// recomputed one.
	ChecksumMismatch
	// FramingError: break/sync structure was violated.
	FramingError
	// IdentifierParityError: the PID parity bits did not match.
	IdentifierParityError
	// ShortFrame: fewer bytes than declared length plus checksum arrived
	// within the response window.
	ShortFrame
)

// String returns the canonical name of the error kind.
func (k BusErrorKind) String() string {
	switch k {
	case NoResponse:
		return "no_response"
	case ChecksumMismatch:
		return "checksum_mismatch"
	case FramingError:
		return "framing_error"
	case IdentifierParityError:
		return "identifier_parity"
	case ShortFrame:
		return "short_frame"
	default:
		return "unknown"
	}
}

// sentinel maps the kind to its package sentinel for errors.Is matching.
func (k BusErrorKind) sentinel() error {
	switch k {
	case NoResponse:
		return ErrNoResponse
	case ChecksumMismatch:
		return ErrChecksumMismatch
	case FramingError:
		return ErrFraming
	case IdentifierParityError:
		return ErrIdentifierParity
	case ShortFrame:
		return ErrShortFrame
	default:
		return nil
	}
}

// BusError is a protocol error observed on the bus, attributed to a frame
// identifier and a timestamp. It is delivered through the session's error
// sink and never halts the schedule.
type BusError struct {
	Time time.Time
	ID   FrameIdentifier
	Kind BusErrorKind
}

// Error implements the error interface.
func (e *BusError) Error() string {
	return fmt.Sprintf("bus error %s on %s at %s", e.Kind, e.ID, e.Time.Format("15:04:05.000"))
}

// Unwrap returns the matching sentinel so errors.Is(err, ErrChecksumMismatch)
// and friends work on sink-delivered errors.
func (e *BusError) Unwrap() error {
	return e.Kind.sentinel()
}

// newBusError stamps a protocol error with the current time.
func newBusError(id FrameIdentifier, kind BusErrorKind) *BusError {
	return &BusError{ID: id, Kind: kind, Time: time.Now()}
}

// AdapterErrorType categorizes adapter faults for retry logic.
type AdapterErrorType int

const (
	// AdapterErrorTransient indicates a potentially retryable fault.
	AdapterErrorTransient AdapterErrorType = iota
	// AdapterErrorPermanent indicates the device or connection is gone.
	AdapterErrorPermanent
	// AdapterErrorTimeout indicates a timeout (special handling).
	AdapterErrorTimeout
)

// AdapterError wraps a hardware-reported fault with operation context.
type AdapterError struct {
	Err       error
	Op        string
	Port      string
	Type      AdapterErrorType
	Retryable bool
}

func (e *AdapterError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates an adapter error with consistent formatting.
func NewAdapterError(op, port string, err error, errType AdapterErrorType) *AdapterError {
	return &AdapterError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == AdapterErrorTransient || errType == AdapterErrorTimeout,
	}
}

// NewReceiveTimeoutError creates a timeout error for a receive operation.
func NewReceiveTimeoutError(op, port string) *AdapterError {
	return NewAdapterError(op, port, ErrReceiveTimeout, AdapterErrorTimeout)
}

// SessionState identifies the lifecycle state of a Session.
type SessionState int

const (
	// SessionCreated is the state after construction, before Start.
	SessionCreated SessionState = iota
	// SessionRunning is the state while the engine goroutine is active.
	SessionRunning
	// SessionStopped is the terminal state after Stop or a fault.
	SessionStopped
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionRunning:
		return "running"
	case SessionStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SessionStateError reports an operation invoked in the wrong session
// state, e.g. SwitchTable before Start.
type SessionStateError struct {
	Op    string
	State SessionState
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("%s: invalid in session state %q", e.Op, e.State)
}

// SessionFault reports that repeated adapter faults exceeded the configured
// threshold and the session was stopped.
type SessionFault struct {
	Err    error
	Op     string
	Faults int
}

func (e *SessionFault) Error() string {
	return fmt.Sprintf("session fault after %d consecutive adapter errors on %s: %v", e.Faults, e.Op, e.Err)
}

func (e *SessionFault) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err belongs to the recoverable protocol
// error class that is delivered through the error sink.
func IsProtocolError(err error) bool {
	switch {
	case errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrIdentifierParity),
		errors.Is(err, ErrFraming),
		errors.Is(err, ErrShortFrame),
		errors.Is(err, ErrNoResponse):
		return true
	default:
		return false
	}
}

// IsRetryable reports whether a single adapter operation can be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	switch {
	case errors.Is(err, ErrReceiveTimeout),
		errors.Is(err, ErrAdapterRead),
		errors.Is(err, ErrAdapterWrite):
		return true
	default:
		return false
	}
}

// IsFatal reports whether the error indicates the adapter or device is gone
// and the session should stop entirely. Distinct from IsRetryable, which
// judges a single operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ae *AdapterError
	if errors.As(err, &ae) && ae.Type == AdapterErrorPermanent {
		return true
	}
	if isDeviceGoneError(err) {
		return true
	}
	switch {
	case errors.Is(err, ErrAdapterClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// isDeviceGoneError checks for OS-level errors indicating the adapter
// device was disconnected during I/O, e.g. a USB-LIN probe unplugged.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		//nolint:exhaustive // only device-gone errno values matter here
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}
	}
	return false
}
