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

// FrameSource distinguishes frames the local node transmitted from frames
// it received off the bus.
type FrameSource int

const (
	// SourceRX marks data received from another node.
	SourceRX FrameSource = iota
	// SourceTX marks data published by the local node.
	SourceTX
)

// String returns "rx" or "tx".
func (s FrameSource) String() string {
	if s == SourceTX {
		return "tx"
	}
	return "rx"
}

// FrameEvent records one completed frame transfer.
type FrameEvent struct {
	Time   time.Time
	Data   []byte
	ID     FrameIdentifier
	Source FrameSource
}

// DefaultEventBuffer is the default capacity of the frame and error sinks.
const DefaultEventBuffer = 64

// eventRing is a bounded drop-oldest buffer with a single-consumer wait.
// Producers never block: when the ring is full the oldest entry is evicted,
// since correctness of bus timing outranks completeness of diagnostics.
type eventRing[T any] struct {
	notify  chan struct{}
	entries []T
	dropped uint64
	max     int
	mu      syncutil.Mutex
}

func newEventRing[T any](size int) *eventRing[T] {
	if size <= 0 {
		size = DefaultEventBuffer
	}
	return &eventRing[T]{
		entries: make([]T, 0, size),
		max:     size,
		notify:  make(chan struct{}, 1),
	}
}

func (r *eventRing[T]) push(e T) {
	r.mu.Lock()
	if len(r.entries) >= r.max {
		copy(r.entries, r.entries[1:])
		r.entries[len(r.entries)-1] = e
		r.dropped++
	} else {
		r.entries = append(r.entries, e)
	}
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *eventRing[T]) tryNext() (T, bool) {
	var zero T
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return zero, false
	}
	e := r.entries[0]
	r.entries = r.entries[1:]
	return e, true
}

func (r *eventRing[T]) next(ctx context.Context) (T, error) {
	for {
		if e, ok := r.tryNext(); ok {
			return e, nil
		}
		select {
		case <-r.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

func (r *eventRing[T]) droppedCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// ErrorSink delivers BusError events to a single consumer. Producers never
// block; overflow drops the oldest entry.
type ErrorSink struct {
	ring *eventRing[*BusError]
}

func newErrorSink(size int) *ErrorSink {
	return &ErrorSink{ring: newEventRing[*BusError](size)}
}

// Next blocks until an error is available or ctx is cancelled.
func (s *ErrorSink) Next(ctx context.Context) (*BusError, error) {
	return s.ring.next(ctx)
}

// TryNext returns the next error without blocking.
func (s *ErrorSink) TryNext() (*BusError, bool) {
	return s.ring.tryNext()
}

// Dropped returns how many errors were evicted by overflow.
func (s *ErrorSink) Dropped() uint64 {
	return s.ring.droppedCount()
}

func (s *ErrorSink) push(e *BusError) {
	s.ring.push(e)
}

// FrameSink delivers received-frame events to a single consumer with the
// same best-effort drop-oldest policy as ErrorSink.
type FrameSink struct {
	ring *eventRing[FrameEvent]
}

func newFrameSink(size int) *FrameSink {
	return &FrameSink{ring: newEventRing[FrameEvent](size)}
}

// Next blocks until an event is available or ctx is cancelled.
func (s *FrameSink) Next(ctx context.Context) (FrameEvent, error) {
	return s.ring.next(ctx)
}

// TryNext returns the next event without blocking.
func (s *FrameSink) TryNext() (FrameEvent, bool) {
	return s.ring.tryNext()
}

// Dropped returns how many events were evicted by overflow.
func (s *FrameSink) Dropped() uint64 {
	return s.ring.droppedCount()
}

func (s *FrameSink) push(e FrameEvent) {
	s.ring.push(e)
}
