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
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/openlin-project/go-lin/internal/syncutil"
)

// MasterMetrics tracks operational counters for a master scheduler.
type MasterMetrics struct {
	Slots          int64 // slots entered, including idle diagnostic slots
	Headers        int64 // headers emitted
	Responses      int64 // responses validated successfully
	ProtocolErrors int64 // protocol errors reported to the sink
	AdapterFaults  int64 // adapter operation failures
}

// Master drives the bus: it walks the active schedule table on a fixed
// timing grid, emits headers, collects and validates responses and manages
// diagnostic transactions. All bus I/O happens on one dedicated goroutine
// started by the owning Session; that goroutine is the exclusive user of
// the adapter.
type Master struct {
	adapter  Adapter
	cfg      *Config
	table    atomic.Pointer[ScheduleTable]
	pending  atomic.Pointer[ScheduleTable]
	frames   *FrameSink
	errs     *ErrorSink
	diagReq  chan DiagnosticRequest
	diagResp chan DiagnosticResponse

	publishMu syncutil.RWMutex
	publish   map[FrameIdentifier][]byte

	wakeRequested atomic.Bool

	slots          atomic.Int64
	headers        atomic.Int64
	responses      atomic.Int64
	protocolErrors atomic.Int64
	adapterFaults  atomic.Int64

	// faultStreak counts consecutive adapter faults; touched only by the
	// scheduling goroutine.
	faultStreak int
	lastFaultOp string
}

// newMaster wires a master scheduler to an adapter and an initial table.
// The table is validated by its constructor; adapter ownership is enforced
// by the Session.
func newMaster(adapter Adapter, table *ScheduleTable, cfg *Config) *Master {
	m := &Master{
		adapter:  adapter,
		cfg:      cfg,
		frames:   newFrameSink(cfg.EventBuffer),
		errs:     newErrorSink(cfg.EventBuffer),
		diagReq:  make(chan DiagnosticRequest, cfg.DiagnosticQueueDepth),
		diagResp: make(chan DiagnosticResponse, cfg.DiagnosticQueueDepth),
		publish:  make(map[FrameIdentifier][]byte),
	}
	m.table.Store(table)
	return m
}

// Frames returns the received/published frame event sink.
func (m *Master) Frames() *FrameSink { return m.frames }

// Errors returns the bus error sink.
func (m *Master) Errors() *ErrorSink { return m.errs }

// Metrics returns a snapshot of the operational counters.
func (m *Master) Metrics() MasterMetrics {
	return MasterMetrics{
		Slots:          m.slots.Load(),
		Headers:        m.headers.Load(),
		Responses:      m.responses.Load(),
		ProtocolErrors: m.protocolErrors.Load(),
		AdapterFaults:  m.adapterFaults.Load(),
	}
}

// Table returns the currently active schedule table.
func (m *Master) Table() *ScheduleTable {
	return m.table.Load()
}

// SwitchTable schedules a table switch. The new table takes effect at the
// top of the next frame slot, never mid-frame; the remaining entries of the
// current pass are discarded.
func (m *Master) SwitchTable(t *ScheduleTable) error {
	if t == nil || t.Len() == 0 {
		return ErrEmptySchedule
	}
	m.pending.Store(t)
	return nil
}

// SetFrameData updates the response payload the master publishes for a
// MasterPublish identifier. The data is applied from the next slot that
// carries the identifier.
func (m *Master) SetFrameData(id FrameIdentifier, data []byte) error {
	if !id.Valid() {
		return fmt.Errorf("frame %s: %w", id, ErrInvalidIdentifier)
	}
	if len(data) < MinDataLength || len(data) > MaxDataLength {
		return fmt.Errorf("frame %s: %d data bytes: %w", id, len(data), ErrInvalidLength)
	}
	c := make([]byte, len(data))
	copy(c, data)
	m.publishMu.Lock()
	m.publish[id] = c
	m.publishMu.Unlock()
	return nil
}

// SendDiagnosticRequest enqueues a master request (0x3C) payload. The
// request is transmitted the next time a 0x3C slot comes up. A full queue
// fails with ErrQueueFull rather than blocking the scheduler or the caller.
func (m *Master) SendDiagnosticRequest(req DiagnosticRequest) error {
	select {
	case m.diagReq <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// DiagnosticResponses returns the channel of validated slave response
// (0x3D) payloads. Delivery is best-effort: when the channel is full the
// oldest response is dropped.
func (m *Master) DiagnosticResponses() <-chan DiagnosticResponse {
	return m.diagResp
}

// GoToSleep enqueues the go-to-sleep master request. Slaves enter sleep
// after receiving it; the schedule keeps running until the session stops.
func (m *Master) GoToSleep() error {
	return m.SendDiagnosticRequest(SleepRequest())
}

// WakeUp requests a wakeup pulse, emitted at the top of the next slot.
func (m *Master) WakeUp() {
	m.wakeRequested.Store(true)
}

// run executes the scheduling loop until ctx is cancelled or a fault
// escalates. It is invoked on the session's dedicated goroutine.
func (m *Master) run(ctx context.Context) error {
	idx := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		// Slot boundary: apply a pending table switch and wake requests
		// before anything touches the wire.
		if p := m.pending.Swap(nil); p != nil {
			m.table.Store(p)
			idx = 0
			Debugf("schedule switched to %q (%d entries)", p.Name(), p.Len())
		}
		if m.wakeRequested.CompareAndSwap(true, false) {
			if err := m.adapter.SendBreak(ctx); err != nil {
				if fault := m.adapterFault(ctx, "SendBreak", err); fault != nil {
					return fault
				}
			}
		}

		tab := m.table.Load()
		entry := tab.Entry(idx)
		slotStart := time.Now()
		m.slots.Add(1)

		if fault := m.runSlot(ctx, entry); fault != nil {
			return fault
		}

		// Hold the timing grid: the next slot starts at slotStart+Delay no
		// matter what happened in this one.
		if !sleepUntil(ctx, slotStart.Add(entry.Delay)) {
			return nil
		}
		idx = (idx + 1) % tab.Len()
	}
}

// runSlot executes one schedule slot: EmitBreakSync, EmitHeader and either
// the publish or the AwaitResponse/Validate path. A non-nil return is a
// fatal SessionFault; protocol errors go to the sink and return nil.
func (m *Master) runSlot(ctx context.Context, entry ScheduleEntry) error {
	def := entry.Frame

	// Master request slots are idle when no diagnostic request is pending.
	var diagData []byte
	if def.ID == MasterRequestID {
		select {
		case req := <-m.diagReq:
			diagData = req.Data[:]
		default:
			return nil
		}
	}

	if err := m.adapter.SendBreak(ctx); err != nil {
		return m.adapterFault(ctx, "SendBreak", err)
	}
	if err := m.adapter.Transmit(ctx, EncodeHeader(def.ID)); err != nil {
		return m.adapterFault(ctx, "Transmit", err)
	}
	m.headers.Add(1)

	if def.Dir == MasterPublish || diagData != nil {
		return m.publishResponse(ctx, def, diagData)
	}
	return m.awaitResponse(ctx, def)
}

// publishResponse transmits the master-side response for a MasterPublish
// slot or a pending diagnostic request.
func (m *Master) publishResponse(ctx context.Context, def FrameDef, diagData []byte) error {
	data := diagData
	if data == nil {
		data = m.publishData(def)
	}
	frame := &Frame{ID: def.ID, Data: data, Checksum: def.Checksum}
	resp, err := EncodeResponse(frame)
	if err != nil {
		// Unreachable with a validated table; surface loudly in debug runs.
		Debugf("encode failed for %s: %v", def.ID, err)
		return nil
	}
	if err := m.adapter.Transmit(ctx, resp); err != nil {
		return m.adapterFault(ctx, "Transmit", err)
	}
	m.resetFaults()
	m.frames.push(FrameEvent{ID: def.ID, Data: data, Time: time.Now(), Source: SourceTX})
	return nil
}

// awaitResponse collects and validates a slave-published response within
// the bounded response window.
func (m *Master) awaitResponse(ctx context.Context, def FrameDef) error {
	timeout := ResponseTimeout(m.cfg.Bitrate, def.Length, m.cfg.ResponseMargin)
	raw, err := m.collectResponse(ctx, def.Length+1, timeout)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Stop interrupted the wait; nothing to validate.
		return nil
	default:
		// Anything else out of Receive is an adapter failure, never a bus
		// observation. Framing errors are diagnosed from the bytes below.
		return m.adapterFault(ctx, "Receive", err)
	}
	m.resetFaults()

	// Validate. Exactly one error per slot; the schedule keeps pace.
	if len(raw) == 0 {
		m.reportError(def.ID, NoResponse)
		return nil
	}
	data, err := DecodeResponse(def.ID, def.Checksum, def.Length, raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrShortFrame):
			m.reportError(def.ID, ShortFrame)
		case errors.Is(err, ErrChecksumMismatch):
			m.reportError(def.ID, ChecksumMismatch)
		default:
			m.reportError(def.ID, FramingError)
		}
		return nil
	}

	m.responses.Add(1)
	now := time.Now()
	m.frames.push(FrameEvent{ID: def.ID, Data: data, Time: now, Source: SourceRX})
	if def.ID == SlaveResponseID {
		m.deliverDiagnostic(data, now)
	}
	return nil
}

// collectResponse reads response bytes until want bytes arrived or the
// window closed. A timeout is not an error here; the caller judges the
// byte count.
func (m *Master) collectResponse(ctx context.Context, want int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, want)
	got := 0
	deadline := time.Now().Add(timeout)
	for got < want {
		remain := time.Until(deadline)
		if remain <= 0 {
			break
		}
		n, err := m.adapter.Receive(ctx, buf[got:], remain)
		got += n
		if err != nil {
			if errors.Is(err, ErrReceiveTimeout) {
				break
			}
			return buf[:got], err
		}
	}
	return buf[:got], nil
}

// deliverDiagnostic hands a validated 0x3D payload to the response queue,
// dropping the oldest entry on overflow.
func (m *Master) deliverDiagnostic(data []byte, now time.Time) {
	var resp DiagnosticResponse
	resp.Time = now
	copy(resp.Data[:], data)
	select {
	case m.diagResp <- resp:
	default:
		select {
		case <-m.diagResp:
		default:
		}
		select {
		case m.diagResp <- resp:
		default:
		}
	}
}

// publishData returns the current publish buffer for a MasterPublish
// frame, zero-filled and sized to the declared length.
func (m *Master) publishData(def FrameDef) []byte {
	out := make([]byte, def.Length)
	m.publishMu.RLock()
	copy(out, m.publish[def.ID])
	m.publishMu.RUnlock()
	return out
}

// reportError pushes a protocol error to the sink.
func (m *Master) reportError(id FrameIdentifier, kind BusErrorKind) {
	m.protocolErrors.Add(1)
	m.errs.push(newBusError(id, kind))
}

// adapterFault records an adapter failure and decides whether to escalate.
// Cancellation is not a fault; fatal errors and threshold breaches return a
// SessionFault that stops the session.
func (m *Master) adapterFault(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	m.adapterFaults.Add(1)
	if op == m.lastFaultOp {
		m.faultStreak++
	} else {
		m.lastFaultOp = op
		m.faultStreak = 1
	}
	Debugf("adapter fault on %s (%d consecutive): %v", op, m.faultStreak, err)
	if IsFatal(err) || m.faultStreak >= m.cfg.FaultThreshold {
		return &SessionFault{Op: op, Err: err, Faults: m.faultStreak}
	}
	return nil
}

// resetFaults clears the consecutive fault streak after a successful
// adapter operation.
func (m *Master) resetFaults() {
	m.faultStreak = 0
	m.lastFaultOp = ""
}

// sleepUntil blocks until t or ctx cancellation; it reports whether the
// deadline was reached.
func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
