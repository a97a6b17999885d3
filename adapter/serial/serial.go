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

// Package serial implements the lin.Adapter contract over a UART-attached
// LIN transceiver. The break condition is generated with a real line break;
// on transceivers that loop TX back into RX the adapter cancels its own
// echo so the engines only see remote traffic.
package serial

import (
	"context"
	"fmt"
	"time"

	lin "github.com/openlin-project/go-lin"
	"github.com/openlin-project/go-lin/internal/syncutil"
	"go.bug.st/serial"
)

// breakDuration is the line break length. At 19200 baud a LIN break must
// span at least 13 bit times (~680us); 1ms covers all supported bitrates.
const breakDuration = time.Millisecond

// pollInterval is the granularity at which a blocking Receive checks for
// context cancellation.
const pollInterval = 20 * time.Millisecond

// Adapter drives a serial port as a LIN bus attachment.
type Adapter struct {
	port     serial.Port
	wakePin  wakePin
	portName string
	cfg      lin.PortConfig
	mu       syncutil.Mutex
	echo     bool
	closed   bool
}

// Option customizes the adapter at construction time.
type Option func(*Adapter) error

// WithEchoCancellation controls whether the adapter discards its own
// transmitted bytes from the receive path. Enabled by default; disable it
// for transceivers that do not loop TX back into RX.
func WithEchoCancellation(enabled bool) Option {
	return func(a *Adapter) error {
		a.echo = enabled
		return nil
	}
}

// WithWakePin routes the transceiver sleep/enable line (for example the
// NSLP pin of a TJA1020) through the named GPIO. The pin is driven high on
// Configure and low on Close.
func WithWakePin(name string) Option {
	return func(a *Adapter) error {
		pin, err := openWakePin(name)
		if err != nil {
			return err
		}
		a.wakePin = pin
		return nil
	}
}

// New opens portName and returns an adapter ready for Configure.
func New(portName string, opts ...Option) (*Adapter, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: int(lin.DefaultBitrate),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}

	a := &Adapter{port: port, portName: portName, echo: true}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			_ = port.Close()
			return nil, err
		}
	}
	return a, nil
}

// Configure applies the bitrate and wakes the transceiver.
func (a *Adapter) Configure(cfg lin.PortConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return lin.ErrAdapterClosed
	}
	mode := &serial.Mode{
		BaudRate: int(cfg.Bitrate),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if err := a.port.SetMode(mode); err != nil {
		return lin.NewAdapterError("Configure", a.portName, err, lin.AdapterErrorPermanent)
	}
	if a.wakePin != nil {
		if err := a.wakePin.wake(); err != nil {
			return lin.NewAdapterError("Configure", a.portName, err, lin.AdapterErrorPermanent)
		}
	}
	a.cfg = cfg
	return nil
}

// SendBreak holds the TX line dominant long enough for every node to detect
// the break, then discards the echoed break byte.
func (a *Adapter) SendBreak(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return lin.ErrAdapterClosed
	}
	if err := a.port.Break(breakDuration); err != nil {
		return lin.NewAdapterError("SendBreak", a.portName, err, lin.AdapterErrorTransient)
	}
	if a.echo {
		a.discardEcho(1)
	}
	return nil
}

// Transmit writes data to the bus and discards the echoed copy.
func (a *Adapter) Transmit(_ context.Context, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return lin.ErrAdapterClosed
	}
	n, err := a.port.Write(data)
	if err != nil {
		return lin.NewAdapterError("Transmit", a.portName, err, lin.AdapterErrorTransient)
	}
	if n < len(data) {
		return lin.NewAdapterError("Transmit", a.portName,
			fmt.Errorf("wrote %d of %d bytes: %w", n, len(data), lin.ErrAdapterWrite),
			lin.AdapterErrorTransient)
	}
	if a.echo {
		a.discardEcho(len(data))
	}
	return nil
}

// discardEcho drains up to n locally echoed bytes. Best effort; a slow
// transceiver echo that misses the window surfaces as noise the engines
// already tolerate.
func (a *Adapter) discardEcho(n int) {
	buf := make([]byte, n)
	_ = a.port.SetReadTimeout(pollInterval)
	got := 0
	for got < n {
		r, err := a.port.Read(buf[:n-got])
		if err != nil || r == 0 {
			return
		}
		got += r
	}
}

// Receive reads up to len(buf) bytes, waiting at most timeout for the first
// byte. Cancellation is checked between short poll reads since the
// underlying port read cannot be interrupted.
func (a *Adapter) Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, lin.ErrAdapterClosed
	}
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		remain := time.Until(deadline)
		if remain <= 0 {
			return 0, lin.NewReceiveTimeoutError("Receive", a.portName)
		}
		_ = a.port.SetReadTimeout(min(remain, pollInterval))
		n, err := a.port.Read(buf)
		if err != nil {
			return 0, lin.NewAdapterError("Receive", a.portName, err, lin.AdapterErrorTransient)
		}
		if n > 0 {
			return n, nil
		}
	}
}

// Close puts the transceiver to sleep and releases the port.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.wakePin != nil {
		_ = a.wakePin.sleep()
	}
	if err := a.port.Close(); err != nil {
		return fmt.Errorf("close serial port %s: %w", a.portName, err)
	}
	return nil
}

// Type identifies the backend.
func (a *Adapter) Type() lin.AdapterType {
	return lin.AdapterSerial
}

// PortName returns the device path the adapter was opened on.
func (a *Adapter) PortName() string {
	return a.portName
}
