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

	"github.com/openlin-project/go-lin/internal/syncutil"
)

// MockAdapter provides a scripted Adapter implementation for unit tests.
// Receive data is fed through Script or ScriptChunk; every transmission and
// break is recorded for assertions, and per-operation errors can be
// injected.
type MockAdapter struct {
	errOn     map[string]error
	callCount map[string]int
	rx        chan []byte
	pending   []byte
	sent      [][]byte
	breaks    int
	cfg       PortConfig
	mu        syncutil.Mutex
	closed    bool
}

// NewMockAdapter creates a mock adapter ready for scripting.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		rx:        make(chan []byte, 64),
		errOn:     make(map[string]error),
		callCount: make(map[string]int),
	}
}

// Script queues bytes to be returned by subsequent Receive calls.
func (m *MockAdapter) Script(data ...byte) {
	m.rx <- data
}

// ScriptChunk queues a chunk preserving its boundary: a Receive call never
// reads past the end of a chunk even when its buffer has room.
func (m *MockAdapter) ScriptChunk(chunk []byte) {
	c := make([]byte, len(chunk))
	copy(c, chunk)
	m.rx <- c
}

// SetError injects an error for an operation: one of "configure", "break",
// "transmit", "receive", "close". The error persists until ClearError.
func (m *MockAdapter) SetError(op string, err error) {
	m.mu.Lock()
	m.errOn[op] = err
	m.mu.Unlock()
}

// ClearError removes error injection for an operation.
func (m *MockAdapter) ClearError(op string) {
	m.mu.Lock()
	delete(m.errOn, op)
	m.mu.Unlock()
}

// Sent returns a snapshot of all recorded transmissions in order.
func (m *MockAdapter) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	for i, s := range m.sent {
		c := make([]byte, len(s))
		copy(c, s)
		out[i] = c
	}
	return out
}

// BreakCount returns how many break conditions were emitted.
func (m *MockAdapter) BreakCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.breaks
}

// CallCount returns how many times an operation was invoked.
func (m *MockAdapter) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount[op]
}

// Config returns the last configuration applied via Configure.
func (m *MockAdapter) Config() PortConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// check records the call and returns the configured state for op.
func (m *MockAdapter) check(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount[op]++
	if m.closed && op != "close" {
		return NewAdapterError(op, "mock", ErrAdapterClosed, AdapterErrorPermanent)
	}
	if err, ok := m.errOn[op]; ok {
		return err
	}
	return nil
}

// Configure implements Adapter.
func (m *MockAdapter) Configure(cfg PortConfig) error {
	if err := m.check("configure"); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// SendBreak implements Adapter.
func (m *MockAdapter) SendBreak(_ context.Context) error {
	if err := m.check("break"); err != nil {
		return err
	}
	m.mu.Lock()
	m.breaks++
	m.mu.Unlock()
	return nil
}

// Transmit implements Adapter.
func (m *MockAdapter) Transmit(_ context.Context, data []byte) error {
	if err := m.check("transmit"); err != nil {
		return err
	}
	c := make([]byte, len(data))
	copy(c, data)
	m.mu.Lock()
	m.sent = append(m.sent, c)
	m.mu.Unlock()
	return nil
}

// Receive implements Adapter. Scripted chunks are consumed in order; with
// nothing scripted the call waits out the timeout and fails with
// ErrReceiveTimeout, mirroring an idle bus.
func (m *MockAdapter) Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	if err := m.check("receive"); err != nil {
		return 0, err
	}

	m.mu.Lock()
	if len(m.pending) > 0 {
		n := copy(buf, m.pending)
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return n, nil
	}
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case chunk := <-m.rx:
		n := copy(buf, chunk)
		if n < len(chunk) {
			m.mu.Lock()
			m.pending = append(m.pending, chunk[n:]...)
			m.mu.Unlock()
		}
		return n, nil
	case <-timer.C:
		return 0, NewReceiveTimeoutError("Receive", "mock")
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close implements Adapter.
func (m *MockAdapter) Close() error {
	if err := m.check("close"); err != nil {
		return err
	}
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Type implements Adapter.
func (*MockAdapter) Type() AdapterType {
	return AdapterMock
}
