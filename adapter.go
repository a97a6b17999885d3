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
	"context"
	"time"
)

// Mode selects the role an adapter channel is configured for.
type Mode int

const (
	// ModeMaster configures the channel for header emission.
	ModeMaster Mode = iota
	// ModeSlave configures the channel for header reception.
	ModeSlave
)

// String returns the lowercase mode name.
func (m Mode) String() string {
	if m == ModeSlave {
		return "slave"
	}
	return "master"
}

// PortConfig carries the channel parameters applied by Adapter.Configure.
type PortConfig struct {
	// Bitrate in bits per second. Typical LIN rates are 9600 and 19200.
	Bitrate uint32
	// Mode is the role of this channel.
	Mode Mode
}

// AdapterType identifies the backend behind an Adapter.
type AdapterType string

const (
	// AdapterSerial is a UART-attached LIN transceiver.
	AdapterSerial AdapterType = "serial"
	// AdapterLoopback is the in-memory bus for tests and simulations.
	AdapterLoopback AdapterType = "loopback"
	// AdapterMock is a scripted adapter for unit tests.
	AdapterMock AdapterType = "mock"
)

// Adapter is the capability contract every hardware backend must satisfy.
// The protocol engines call only through this interface; no vendor-specific
// types cross it.
//
// An Adapter instance is exclusively owned by one Session: the scheduling
// goroutine is the only caller of SendBreak, Transmit and Receive while the
// session runs. Close releases the underlying channel and must be safe to
// call exactly once after the session stops.
type Adapter interface {
	// Configure applies bitrate and mode. Called once before traffic.
	Configure(cfg PortConfig) error

	// SendBreak transmits the break condition that opens a frame slot.
	SendBreak(ctx context.Context) error

	// Transmit writes raw bytes to the bus.
	Transmit(ctx context.Context, data []byte) error

	// Receive reads up to len(buf) bytes, waiting at most timeout for the
	// first byte. It returns the number of bytes read; a timeout with no
	// data fails with an error matching ErrReceiveTimeout. Cancelling ctx
	// interrupts a pending wait.
	Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error)

	// Close releases the adapter channel.
	Close() error

	// Type identifies the backend.
	Type() AdapterType
}
