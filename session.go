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
	"fmt"
	"sync"

	"github.com/openlin-project/go-lin/internal/syncutil"
)

// NodeRole is the bus role a session plays.
type NodeRole int

const (
	// NodeMaster drives the schedule and owns all header emission.
	NodeMaster NodeRole = iota
	// NodeSlave responds to headers according to its frame table.
	NodeSlave
)

// String returns "master" or "slave".
func (r NodeRole) String() string {
	if r == NodeSlave {
		return "slave"
	}
	return "master"
}

// claimedAdapters maps an adapter to the session that owns it. A session
// claims its adapter at construction and releases it when stopped, so two
// sessions can never share one port.
var claimedAdapters sync.Map

// Session ties an engine (master scheduler or slave response engine) to an
// adapter and manages the Created, Running, Stopped lifecycle. The engine
// runs on one dedicated goroutine spawned by Start; that goroutine is the
// only user of the adapter while the session is running.
type Session struct {
	adapter Adapter
	cfg     *Config
	master  *Master
	slave   *Slave
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	role    NodeRole
	state   SessionState
	closed  bool
	mu      syncutil.Mutex
}

func newSession(adapter Adapter, role NodeRole, opts []Option) (*Session, *Config, error) {
	if adapter == nil {
		return nil, nil, fmt.Errorf("session: nil adapter")
	}
	cfg := DefaultSessionConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, nil, fmt.Errorf("session option: %w", err)
		}
	}
	s := &Session{adapter: adapter, cfg: cfg, role: role, state: SessionCreated}
	if _, loaded := claimedAdapters.LoadOrStore(adapter, s); loaded {
		return nil, nil, fmt.Errorf("%s adapter: %w", adapter.Type(), ErrAdapterClaimed)
	}
	return s, cfg, nil
}

// NewMasterSession builds a master session over adapter with table as the
// initial schedule. The adapter is claimed immediately and released when the
// session stops.
func NewMasterSession(adapter Adapter, table *ScheduleTable, opts ...Option) (*Session, error) {
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("master session: %w", ErrEmptySchedule)
	}
	s, cfg, err := newSession(adapter, NodeMaster, opts)
	if err != nil {
		return nil, err
	}
	s.master = newMaster(adapter, table, cfg)
	return s, nil
}

// NewSlaveSession builds a slave session over adapter with table as its
// frame table.
func NewSlaveSession(adapter Adapter, table *SlaveResponseTable, opts ...Option) (*Session, error) {
	if table == nil {
		return nil, fmt.Errorf("slave session: %w", ErrEmptySchedule)
	}
	s, cfg, err := newSession(adapter, NodeSlave, opts)
	if err != nil {
		return nil, err
	}
	s.slave = newSlave(adapter, table, cfg)
	return s, nil
}

// Role returns the session's bus role.
func (s *Session) Role() NodeRole { return s.role }

// Master returns the scheduler of a master session, nil for slave sessions.
func (s *Session) Master() *Master { return s.master }

// Slave returns the response engine of a slave session, nil for master
// sessions.
func (s *Session) Slave() *Slave { return s.slave }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frames returns the frame event sink of the underlying engine.
func (s *Session) Frames() *FrameSink {
	if s.role == NodeMaster {
		return s.master.Frames()
	}
	return s.slave.Frames()
}

// Errors returns the bus error sink of the underlying engine.
func (s *Session) Errors() *ErrorSink {
	if s.role == NodeMaster {
		return s.master.Errors()
	}
	return s.slave.Errors()
}

// Start configures the adapter and launches the engine goroutine. It fails
// with a SessionStateError unless the session is in Created state; on an
// adapter configuration failure the session stays Created so the caller can
// retry. ctx cancellation stops the engine the same way Stop does.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionCreated {
		return &SessionStateError{Op: "Start", State: s.state}
	}

	mode := ModeMaster
	if s.role == NodeSlave {
		mode = ModeSlave
	}
	portCfg := PortConfig{Bitrate: s.cfg.Bitrate, Mode: mode}
	err := RetryWithConfig(ctx, s.cfg.RetryConfig, func() error {
		return s.adapter.Configure(portCfg)
	})
	if err != nil {
		return fmt.Errorf("configure %s adapter: %w", s.adapter.Type(), err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = SessionRunning
	go s.runEngine(runCtx)
	return nil
}

func (s *Session) runEngine(ctx context.Context) {
	var err error
	if s.role == NodeMaster {
		err = s.master.run(ctx)
	} else {
		err = s.slave.run(ctx)
	}

	s.mu.Lock()
	s.runErr = err
	if err != nil {
		// Fault escalation: tear the session down without waiting for Stop.
		s.state = SessionStopped
		_ = s.closeAdapterLocked()
	}
	s.mu.Unlock()
	close(s.done)
}

// Stop cancels the engine goroutine, waits for it to exit and closes the
// adapter. Stop is idempotent; a blocked header wait or response wait is
// interrupted immediately.
func (s *Session) Stop() error {
	s.mu.Lock()
	switch s.state {
	case SessionStopped:
		s.mu.Unlock()
		return nil
	case SessionCreated:
		s.state = SessionStopped
		err := s.closeAdapterLocked()
		s.mu.Unlock()
		return err
	case SessionRunning:
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionStopped {
		// The engine faulted and already tore down.
		return nil
	}
	s.state = SessionStopped
	return s.closeAdapterLocked()
}

// Err reports the fault that stopped the engine, if any. Deliberate stops
// leave it nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// closeAdapterLocked closes the adapter exactly once and releases the
// ownership claim. Callers hold s.mu.
func (s *Session) closeAdapterLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	claimedAdapters.Delete(s.adapter)
	if err := s.adapter.Close(); err != nil {
		return fmt.Errorf("close %s adapter: %w", s.adapter.Type(), err)
	}
	return nil
}
