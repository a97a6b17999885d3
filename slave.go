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

// SlaveRole describes how a slave node treats a frame identifier.
type SlaveRole int

const (
	// RoleIgnore: the identifier is known but carries no data for this
	// node; the response bytes are consumed silently to stay in sync.
	RoleIgnore SlaveRole = iota
	// RolePublish: this node supplies the response when the header arrives.
	RolePublish
	// RoleSubscribe: another node publishes; this node validates and
	// records the received data.
	RoleSubscribe
)

// String returns the lowercase role name.
func (r SlaveRole) String() string {
	switch r {
	case RolePublish:
		return "publish"
	case RoleSubscribe:
		return "subscribe"
	default:
		return "ignore"
	}
}

// SlaveFrameEntry declares one identifier in a slave's frame table.
// For RolePublish, Data is the initial response payload (zero-filled when
// nil); for the other roles Data is ignored.
type SlaveFrameEntry struct {
	Data     []byte
	ID       FrameIdentifier
	Role     SlaveRole
	Length   int
	Checksum ChecksumKind
}

func (e SlaveFrameEntry) validate() error {
	if !e.ID.Valid() {
		return fmt.Errorf("slave frame %s: %w", e.ID, ErrInvalidIdentifier)
	}
	if e.Length < MinDataLength || e.Length > MaxDataLength {
		return fmt.Errorf("slave frame %s: length %d: %w", e.ID, e.Length, ErrInvalidLength)
	}
	if e.ID.IsDiagnostic() && e.Checksum != ChecksumClassic {
		return fmt.Errorf("diagnostic frame %s requires classic checksum: %w", e.ID, ErrChecksumKind)
	}
	if e.Role == RolePublish && e.Data != nil && len(e.Data) != e.Length {
		return fmt.Errorf("slave frame %s: %d initial bytes for length %d: %w",
			e.ID, len(e.Data), e.Length, ErrInvalidLength)
	}
	return nil
}

// slaveFrame is the mutable per-identifier state inside the table.
type slaveFrame struct {
	data      []byte
	injection *injectionState
	entry     SlaveFrameEntry
}

// SlaveResponseTable maps frame identifiers to response behavior. A table
// is owned by exactly one Slave engine; response data updates are
// serialized against the engine's loop through the table lock and apply
// between frames.
type SlaveResponseTable struct {
	entries map[FrameIdentifier]*slaveFrame
	mu      syncutil.RWMutex
}

// NewSlaveResponseTable validates the entries and builds the table.
// Duplicate identifiers and invalid definitions fail synchronously.
func NewSlaveResponseTable(entries ...SlaveFrameEntry) (*SlaveResponseTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("slave table: %w", ErrEmptySchedule)
	}
	tab := &SlaveResponseTable{entries: make(map[FrameIdentifier]*slaveFrame, len(entries))}
	for i, e := range entries {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := tab.entries[e.ID]; dup {
			return nil, fmt.Errorf("entry %d: duplicate identifier %s: %w", i, e.ID, ErrInvalidIdentifier)
		}
		data := make([]byte, e.Length)
		copy(data, e.Data)
		tab.entries[e.ID] = &slaveFrame{entry: e, data: data}
	}
	return tab, nil
}

// lookup returns the frame state for an identifier.
func (t *SlaveResponseTable) lookup(id FrameIdentifier) (*slaveFrame, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.entries[id]
	return f, ok
}

// InjectionMode selects how an injected fault corrupts a published
// response. Used for conformance testing of master implementations.
type InjectionMode int

const (
	// InjectCorruptChecksum flips the checksum byte of the response.
	InjectCorruptChecksum InjectionMode = iota
	// InjectShortResponse drops the trailing bytes of the response.
	InjectShortResponse
	// InjectWithholdResponse suppresses the response entirely.
	InjectWithholdResponse
)

// InjectionRule triggers an InjectionMode on every Nth occurrence of a
// published identifier. Count bounds how many times the rule fires; zero
// means unlimited.
type InjectionRule struct {
	Mode  InjectionMode
	Every int
	Count int
}

type injectionState struct {
	rule        InjectionRule
	occurrences int
	applied     int
}

// decide counts one occurrence and reports whether the rule fires.
func (st *injectionState) decide() (InjectionMode, bool) {
	st.occurrences++
	if st.rule.Every < 1 {
		return 0, false
	}
	if st.occurrences%st.rule.Every != 0 {
		return 0, false
	}
	if st.rule.Count > 0 && st.applied >= st.rule.Count {
		return 0, false
	}
	st.applied++
	return st.rule.Mode, true
}

// SlaveMetrics tracks operational counters for a slave engine.
type SlaveMetrics struct {
	HeadersSeen    int64 // valid headers addressed to any identifier
	ResponsesSent  int64 // responses published (including corrupted ones)
	ProtocolErrors int64 // protocol errors reported to the sink
	AdapterFaults  int64 // adapter operation failures
}

// Slave is the response engine of one slave node: it listens for headers,
// matches the identifier against its frame table and publishes, observes or
// ignores the response within the same timing slot. All bus I/O happens on
// one dedicated goroutine started by the owning Session.
type Slave struct {
	adapter Adapter
	cfg     *Config
	table   *SlaveResponseTable
	frames  *FrameSink
	errs    *ErrorSink

	headersSeen    atomic.Int64
	responsesSent  atomic.Int64
	protocolErrors atomic.Int64
	adapterFaults  atomic.Int64

	// Loop-local receive buffer and fault streak; touched only by the
	// engine goroutine.
	rxpend      []byte
	faultStreak int
	lastFaultOp string
}

// headerPollTimeout bounds one idle wait for bus traffic. Stop interrupts
// the wait through context cancellation, so the value only affects how
// promptly adapter faults surface on a silent bus.
const headerPollTimeout = 100 * time.Millisecond

// newSlave wires a response engine to an adapter and a frame table.
func newSlave(adapter Adapter, table *SlaveResponseTable, cfg *Config) *Slave {
	return &Slave{
		adapter: adapter,
		cfg:     cfg,
		table:   table,
		frames:  newFrameSink(cfg.EventBuffer),
		errs:    newErrorSink(cfg.EventBuffer),
	}
}

// Frames returns the received/published frame event sink.
func (s *Slave) Frames() *FrameSink { return s.frames }

// Errors returns the bus error sink.
func (s *Slave) Errors() *ErrorSink { return s.errs }

// Metrics returns a snapshot of the operational counters.
func (s *Slave) Metrics() SlaveMetrics {
	return SlaveMetrics{
		HeadersSeen:    s.headersSeen.Load(),
		ResponsesSent:  s.responsesSent.Load(),
		ProtocolErrors: s.protocolErrors.Load(),
		AdapterFaults:  s.adapterFaults.Load(),
	}
}

// UpdateResponse replaces the payload published for id. The new data
// applies from the next header carrying the identifier.
func (s *Slave) UpdateResponse(id FrameIdentifier, data []byte) error {
	f, ok := s.table.lookup(id)
	if !ok {
		return fmt.Errorf("frame %s: %w", id, ErrUnknownIdentifier)
	}
	if f.entry.Role != RolePublish {
		return fmt.Errorf("frame %s has role %s: %w", id, f.entry.Role, ErrUnknownIdentifier)
	}
	if len(data) != f.entry.Length {
		return fmt.Errorf("frame %s: %d bytes for length %d: %w",
			id, len(data), f.entry.Length, ErrInvalidLength)
	}
	c := make([]byte, len(data))
	copy(c, data)
	s.table.mu.Lock()
	f.data = c
	s.table.mu.Unlock()
	return nil
}

// InjectError installs an error injection rule for a published identifier.
// Passing a rule with Every < 1 clears any existing rule.
func (s *Slave) InjectError(id FrameIdentifier, rule InjectionRule) error {
	f, ok := s.table.lookup(id)
	if !ok {
		return fmt.Errorf("frame %s: %w", id, ErrUnknownIdentifier)
	}
	s.table.mu.Lock()
	if rule.Every < 1 {
		f.injection = nil
	} else {
		f.injection = &injectionState{rule: rule}
	}
	s.table.mu.Unlock()
	return nil
}

// run executes the header state machine until ctx is cancelled or a fault
// escalates: ListeningForHeader, MatchIdentifier, then Respond, Observe or
// Ignore inside the same slot.
func (s *Slave) run(ctx context.Context) error {
	for ctx.Err() == nil {
		if fault := s.handleNextHeader(ctx); fault != nil {
			return fault
		}
	}
	return nil
}

// handleNextHeader consumes bytes up to and including one header and
// dispatches on the identifier. Non-fatal conditions resynchronize at the
// next break.
func (s *Slave) handleNextHeader(ctx context.Context) error {
	b, ok, fault := s.readByte(ctx)
	if fault != nil || !ok {
		return fault
	}
	if b != BreakByte {
		// Scanning for the start of a frame; mid-frame noise is dropped.
		return nil
	}

	// Collapse repeated break bytes, then demand the sync byte.
	sync := b
	for sync == BreakByte {
		sync, ok, fault = s.readByte(ctx)
		if fault != nil || !ok {
			return fault
		}
	}
	if sync != SyncByte {
		s.reportError(0, FramingError)
		return nil
	}

	pid, ok, fault := s.readByte(ctx)
	if fault != nil || !ok {
		return fault
	}
	id, err := DecodePID(pid)
	if err != nil {
		s.reportError(FrameIdentifier(pid&0x3F), IdentifierParityError)
		return nil
	}
	s.headersSeen.Add(1)

	f, known := s.table.lookup(id)
	if !known {
		// Never respond to an identifier absent from the table; the header
		// is dropped and the scanner resynchronizes at the next break.
		Debugf("dropping header for unknown identifier %s", id)
		return nil
	}

	switch f.entry.Role {
	case RolePublish:
		return s.respond(ctx, f)
	case RoleSubscribe:
		return s.observe(ctx, f, true)
	default:
		return s.observe(ctx, f, false)
	}
}

// respond publishes the configured response within the current slot,
// applying any installed injection rule first.
func (s *Slave) respond(ctx context.Context, f *slaveFrame) error {
	s.table.mu.Lock()
	data := make([]byte, len(f.data))
	copy(data, f.data)
	var mode InjectionMode
	fired := false
	if f.injection != nil {
		mode, fired = f.injection.decide()
	}
	entry := f.entry
	s.table.mu.Unlock()

	if fired && mode == InjectWithholdResponse {
		Debugf("withholding response for %s", entry.ID)
		return nil
	}

	frame := &Frame{ID: entry.ID, Data: data, Checksum: entry.Checksum}
	resp, err := EncodeResponse(frame)
	if err != nil {
		Debugf("encode failed for %s: %v", entry.ID, err)
		return nil
	}
	if fired {
		switch mode {
		case InjectCorruptChecksum:
			resp[len(resp)-1] ^= 0xFF
		case InjectShortResponse:
			resp = resp[:len(resp)-2]
		case InjectWithholdResponse:
			// handled above
		}
	}

	if err := s.adapter.Transmit(ctx, resp); err != nil {
		return s.adapterFault(ctx, "Transmit", err)
	}
	s.resetFaults()
	s.responsesSent.Add(1)
	s.frames.push(FrameEvent{ID: entry.ID, Data: data, Time: time.Now(), Source: SourceTX})
	return nil
}

// observe consumes the response bytes of a frame another node publishes.
// With record set, the data is validated and delivered as a reception
// event; otherwise the bytes are consumed silently to stay in sync.
func (s *Slave) observe(ctx context.Context, f *slaveFrame, record bool) error {
	entry := f.entry
	timeout := ResponseTimeout(s.cfg.Bitrate, entry.Length, s.cfg.ResponseMargin)
	raw, fault := s.consume(ctx, entry.Length+1, timeout)
	if fault != nil {
		return fault
	}
	if !record {
		return nil
	}
	if len(raw) == 0 {
		s.reportError(entry.ID, NoResponse)
		return nil
	}
	data, err := DecodeResponse(entry.ID, entry.Checksum, entry.Length, raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrShortFrame):
			s.reportError(entry.ID, ShortFrame)
		case errors.Is(err, ErrChecksumMismatch):
			s.reportError(entry.ID, ChecksumMismatch)
		default:
			s.reportError(entry.ID, FramingError)
		}
		return nil
	}
	s.frames.push(FrameEvent{ID: entry.ID, Data: data, Time: time.Now(), Source: SourceRX})
	return nil
}

// readByte returns the next bus byte, refilling the loop-local buffer from
// the adapter as needed. ok is false on an idle poll; fault is non-nil only
// when adapter errors escalate.
func (s *Slave) readByte(ctx context.Context) (b byte, ok bool, fault error) {
	if len(s.rxpend) > 0 {
		b = s.rxpend[0]
		s.rxpend = s.rxpend[1:]
		return b, true, nil
	}
	buf := make([]byte, 64)
	n, err := s.adapter.Receive(ctx, buf, headerPollTimeout)
	if err != nil {
		if errors.Is(err, ErrReceiveTimeout) || errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return 0, false, nil
		}
		return 0, false, s.adapterFault(ctx, "Receive", err)
	}
	s.resetFaults()
	if n == 0 {
		return 0, false, nil
	}
	s.rxpend = append(s.rxpend, buf[:n]...)
	b = s.rxpend[0]
	s.rxpend = s.rxpend[1:]
	return b, true, nil
}

// consume reads up to want bytes within the response window, using the
// loop-local buffer first.
func (s *Slave) consume(ctx context.Context, want int, timeout time.Duration) ([]byte, error) {
	out := make([]byte, 0, want)
	if len(s.rxpend) > 0 {
		n := min(want, len(s.rxpend))
		out = append(out, s.rxpend[:n]...)
		s.rxpend = s.rxpend[n:]
	}
	deadline := time.Now().Add(timeout)
	buf := make([]byte, want)
	for len(out) < want {
		remain := time.Until(deadline)
		if remain <= 0 {
			break
		}
		n, err := s.adapter.Receive(ctx, buf[:want-len(out)], remain)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, ErrReceiveTimeout) || errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return out, s.adapterFault(ctx, "Receive", err)
		}
		s.resetFaults()
	}
	return out, nil
}

// reportError pushes a protocol error to the sink.
func (s *Slave) reportError(id FrameIdentifier, kind BusErrorKind) {
	s.protocolErrors.Add(1)
	s.errs.push(newBusError(id, kind))
}

// adapterFault mirrors the master-side escalation policy.
func (s *Slave) adapterFault(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	s.adapterFaults.Add(1)
	if op == s.lastFaultOp {
		s.faultStreak++
	} else {
		s.lastFaultOp = op
		s.faultStreak = 1
	}
	Debugf("adapter fault on %s (%d consecutive): %v", op, s.faultStreak, err)
	if IsFatal(err) || s.faultStreak >= s.cfg.FaultThreshold {
		return &SessionFault{Op: op, Err: err, Faults: s.faultStreak}
	}
	return nil
}

func (s *Slave) resetFaults() {
	s.faultStreak = 0
	s.lastFaultOp = ""
}
