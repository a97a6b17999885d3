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

// Package loopback provides an in-memory bus for tests and simulations.
// Every endpoint is a full lin.Adapter; bytes written by one endpoint are
// delivered to all other endpoints on the same bus, never back to the
// sender. Wiring a master session and one or more slave sessions to
// endpoints of one Bus exercises the complete protocol stack without
// hardware.
package loopback

import (
	"context"
	"fmt"
	"time"

	lin "github.com/openlin-project/go-lin"
	"github.com/openlin-project/go-lin/internal/syncutil"
)

// endpointQueue is the per-endpoint delivery queue depth, in chunks. A
// chunk is one Transmit or SendBreak call; overflow drops the newest chunk,
// which on a real bus corresponds to a receiver too slow to drain its UART
// FIFO.
const endpointQueue = 256

// Bus is the shared medium. All endpoints created from one Bus see each
// other's traffic.
type Bus struct {
	endpoints []*Endpoint
	mu        syncutil.Mutex
	closed    bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// NewEndpoint attaches a new endpoint to the bus.
func (b *Bus) NewEndpoint() *Endpoint {
	ep := &Endpoint{
		bus: b,
		rx:  make(chan []byte, endpointQueue),
	}
	b.mu.Lock()
	b.endpoints = append(b.endpoints, ep)
	b.mu.Unlock()
	return ep
}

// Close detaches all endpoints. Further traffic fails with
// lin.ErrAdapterClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// broadcast delivers one chunk to every endpoint except the sender.
func (b *Bus) broadcast(from *Endpoint, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return lin.ErrAdapterClosed
	}
	for _, ep := range b.endpoints {
		if ep == from {
			continue
		}
		c := make([]byte, len(data))
		copy(c, data)
		select {
		case ep.rx <- c:
		default:
			// Receiver overrun; the chunk is lost for that endpoint only.
		}
	}
	return nil
}

// Endpoint is one node's attachment point. It satisfies lin.Adapter and is
// owned by exactly one session.
type Endpoint struct {
	bus     *Bus
	rx      chan []byte
	pending []byte
	cfg     lin.PortConfig
	mu      syncutil.Mutex
	closed  bool
}

// Configure records the port parameters. The loopback medium has no real
// bitrate; the values are kept for inspection.
func (e *Endpoint) Configure(cfg lin.PortConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return lin.ErrAdapterClosed
	}
	e.cfg = cfg
	return nil
}

// Config returns the configuration applied by the owning session.
func (e *Endpoint) Config() lin.PortConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SendBreak broadcasts the in-band break byte.
func (e *Endpoint) SendBreak(ctx context.Context) error {
	return e.Transmit(ctx, []byte{lin.BreakByte})
}

// Transmit broadcasts data to all other endpoints.
func (e *Endpoint) Transmit(_ context.Context, data []byte) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return fmt.Errorf("loopback transmit: %w", lin.ErrAdapterClosed)
	}
	return e.bus.broadcast(e, data)
}

// Receive reads up to len(buf) bytes, waiting at most timeout for the first
// byte. Chunk boundaries from the sender side are not preserved across
// calls; leftover bytes are returned by the next Receive.
func (e *Endpoint) Receive(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, fmt.Errorf("loopback receive: %w", lin.ErrAdapterClosed)
	}
	if len(e.pending) > 0 {
		n := copy(buf, e.pending)
		e.pending = e.pending[n:]
		e.mu.Unlock()
		return n, nil
	}
	e.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case chunk := <-e.rx:
		e.mu.Lock()
		e.pending = chunk
		n := copy(buf, e.pending)
		e.pending = e.pending[n:]
		e.mu.Unlock()
		return n, nil
	case <-timer.C:
		return 0, lin.NewReceiveTimeoutError("Receive", "loopback")
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close detaches the endpoint. Pending data is discarded.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.pending = nil
	return nil
}

// Type identifies the backend.
func (e *Endpoint) Type() lin.AdapterType {
	return lin.AdapterLoopback
}
