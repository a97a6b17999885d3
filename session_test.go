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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Lifecycle(t *testing.T) {
	t.Parallel()

	adapter := NewMockAdapter()
	session, err := NewMasterSession(adapter, mustTable(t))
	require.NoError(t, err)
	assert.Equal(t, SessionCreated, session.State())
	assert.Equal(t, NodeMaster, session.Role())
	require.NotNil(t, session.Master())
	assert.Nil(t, session.Slave())

	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, SessionRunning, session.State())
	assert.Equal(t, uint32(DefaultBitrate), adapter.Config().Bitrate)
	assert.Equal(t, ModeMaster, adapter.Config().Mode)

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, session.Stop())
	assert.Equal(t, SessionStopped, session.State())
	require.NoError(t, session.Err(), "deliberate stop must not record a fault")
	assert.Equal(t, 1, adapter.CallCount("close"))
}

func TestSession_StartTwice(t *testing.T) {
	t.Parallel()

	session, err := NewMasterSession(NewMockAdapter(), mustTable(t))
	require.NoError(t, err)
	require.NoError(t, session.Start(context.Background()))
	defer func() { _ = session.Stop() }()

	err = session.Start(context.Background())
	var stateErr *SessionStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "Start", stateErr.Op)
	assert.Equal(t, SessionRunning, stateErr.State)
}

func TestSession_StopIdempotent(t *testing.T) {
	t.Parallel()

	adapter := NewMockAdapter()
	session, err := NewMasterSession(adapter, mustTable(t))
	require.NoError(t, err)
	require.NoError(t, session.Start(context.Background()))

	require.NoError(t, session.Stop())
	require.NoError(t, session.Stop())
	require.NoError(t, session.Stop())
	assert.Equal(t, 1, adapter.CallCount("close"), "adapter closed more than once")
}

func TestSession_StopBeforeStart(t *testing.T) {
	t.Parallel()

	adapter := NewMockAdapter()
	session, err := NewMasterSession(adapter, mustTable(t))
	require.NoError(t, err)

	require.NoError(t, session.Stop())
	assert.Equal(t, SessionStopped, session.State())
	assert.Equal(t, 1, adapter.CallCount("close"))

	// Start after stop is a state error.
	var stateErr *SessionStateError
	require.ErrorAs(t, session.Start(context.Background()), &stateErr)
}

// TestSession_AdapterClaim checks that one adapter can never serve two
// sessions at once, and that stopping releases the claim.
func TestSession_AdapterClaim(t *testing.T) {
	t.Parallel()

	adapter := NewMockAdapter()
	first, err := NewMasterSession(adapter, mustTable(t))
	require.NoError(t, err)

	_, err = NewMasterSession(adapter, mustTable(t))
	require.ErrorIs(t, err, ErrAdapterClaimed)

	require.NoError(t, first.Stop())

	// The claim is released; the adapter itself is closed, but a new
	// session may be built over it.
	second, err := NewMasterSession(adapter, mustTable(t))
	require.NoError(t, err)
	require.NoError(t, second.Stop())
}

func TestSession_StartFailureKeepsCreated(t *testing.T) {
	t.Parallel()

	adapter := NewMockAdapter()
	adapter.SetError("configure", NewAdapterError("Configure", "mock", ErrAdapterClosed, AdapterErrorPermanent))
	session, err := NewMasterSession(adapter, mustTable(t))
	require.NoError(t, err)

	require.Error(t, session.Start(context.Background()))
	assert.Equal(t, SessionCreated, session.State())

	// A later attempt may succeed once the adapter recovers.
	adapter.ClearError("configure")
	require.NoError(t, session.Start(context.Background()))
	require.NoError(t, session.Stop())
}

// TestSession_FaultTearsDown drives a fatal adapter fault and expects the
// session to stop itself and surface the fault through Err.
func TestSession_FaultTearsDown(t *testing.T) {
	t.Parallel()

	adapter := NewMockAdapter()
	session, err := NewMasterSession(adapter, mustTable(t))
	require.NoError(t, err)
	require.NoError(t, session.Start(context.Background()))

	adapter.SetError("break", NewAdapterError("SendBreak", "mock", ErrAdapterClosed, AdapterErrorPermanent))

	require.Eventually(t, func() bool {
		return session.State() == SessionStopped
	}, time.Second, 5*time.Millisecond)

	var fault *SessionFault
	require.ErrorAs(t, session.Err(), &fault)
	require.NoError(t, session.Stop(), "stop after fault is a no-op")
}

func TestSession_StopInterruptsBlockedSlave(t *testing.T) {
	t.Parallel()

	adapter := NewMockAdapter()
	tab, err := NewSlaveResponseTable(SlaveFrameEntry{
		ID: 0x10, Role: RoleSubscribe, Length: 2, Checksum: ChecksumClassic,
	})
	require.NoError(t, err)

	session, err := NewSlaveSession(adapter, tab)
	require.NoError(t, err)
	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, ModeSlave, adapter.Config().Mode)

	// The engine is blocked waiting for a header; Stop must return
	// promptly anyway.
	start := time.Now()
	require.NoError(t, session.Stop())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.NoError(t, session.Err())
}

func TestSession_ConstructorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewMasterSession(nil, mustTable(t))
	require.Error(t, err)

	_, err = NewMasterSession(NewMockAdapter(), nil)
	require.ErrorIs(t, err, ErrEmptySchedule)

	_, err = NewSlaveSession(NewMockAdapter(), nil)
	require.ErrorIs(t, err, ErrEmptySchedule)

	_, err = NewMasterSession(NewMockAdapter(), mustTable(t), WithBitrate(0))
	require.Error(t, err)
}

func TestSession_SinkAccessors(t *testing.T) {
	t.Parallel()

	master, err := NewMasterSession(NewMockAdapter(), mustTable(t))
	require.NoError(t, err)
	assert.NotNil(t, master.Frames())
	assert.NotNil(t, master.Errors())
	require.NoError(t, master.Stop())

	tab, err := NewSlaveResponseTable(SlaveFrameEntry{
		ID: 0x10, Role: RoleIgnore, Length: 2, Checksum: ChecksumClassic,
	})
	require.NoError(t, err)
	slave, err := NewSlaveSession(NewMockAdapter(), tab)
	require.NoError(t, err)
	assert.Equal(t, NodeSlave, slave.Role())
	assert.NotNil(t, slave.Frames())
	assert.NotNil(t, slave.Errors())
	require.NoError(t, slave.Stop())
}
