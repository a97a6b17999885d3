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

package loopback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lin "github.com/openlin-project/go-lin"
)

func TestEndpoint_BroadcastExcludesSender(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	a := bus.NewEndpoint()
	b := bus.NewEndpoint()
	c := bus.NewEndpoint()
	ctx := context.Background()

	require.NoError(t, a.Transmit(ctx, []byte{0x55, 0x50, 0x01}))

	buf := make([]byte, 8)
	n, err := b.Receive(ctx, buf, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x50, 0x01}, buf[:n])

	n, err = c.Receive(ctx, buf, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The sender never hears its own transmission.
	_, err = a.Receive(ctx, buf, 20*time.Millisecond)
	require.ErrorIs(t, err, lin.ErrReceiveTimeout)
}

func TestEndpoint_SendBreak(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	a := bus.NewEndpoint()
	b := bus.NewEndpoint()

	require.NoError(t, a.SendBreak(context.Background()))

	buf := make([]byte, 4)
	n, err := b.Receive(context.Background(), buf, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{lin.BreakByte}, buf[:n])
}

// TestEndpoint_PartialReadKeepsRemainder checks that a small receive buffer
// does not lose the tail of a chunk.
func TestEndpoint_PartialReadKeepsRemainder(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	a := bus.NewEndpoint()
	b := bus.NewEndpoint()
	ctx := context.Background()

	require.NoError(t, a.Transmit(ctx, []byte{0x01, 0x02, 0x03, 0x04}))

	buf := make([]byte, 2)
	n, err := b.Receive(ctx, buf, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, buf[:n])

	n, err = b.Receive(ctx, buf, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x04}, buf[:n])
}

func TestEndpoint_ReceiveTimeout(t *testing.T) {
	t.Parallel()

	ep := NewBus().NewEndpoint()
	start := time.Now()
	_, err := ep.Receive(context.Background(), make([]byte, 4), 20*time.Millisecond)
	require.ErrorIs(t, err, lin.ErrReceiveTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestEndpoint_ReceiveContextCancel(t *testing.T) {
	t.Parallel()

	ep := NewBus().NewEndpoint()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := ep.Receive(ctx, make([]byte, 4), time.Second)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEndpoint_Close(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	ep := bus.NewEndpoint()
	require.NoError(t, ep.Configure(lin.PortConfig{Bitrate: 19200}))
	assert.Equal(t, uint32(19200), ep.Config().Bitrate)
	assert.Equal(t, lin.AdapterLoopback, ep.Type())

	require.NoError(t, ep.Close())
	require.ErrorIs(t, ep.Transmit(context.Background(), []byte{0x00}), lin.ErrAdapterClosed)
	_, err := ep.Receive(context.Background(), make([]byte, 1), time.Millisecond)
	require.ErrorIs(t, err, lin.ErrAdapterClosed)
	require.ErrorIs(t, ep.Configure(lin.PortConfig{}), lin.ErrAdapterClosed)
}

func TestBus_Close(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	a := bus.NewEndpoint()
	require.NoError(t, bus.Close())
	require.ErrorIs(t, a.Transmit(context.Background(), []byte{0x00}), lin.ErrAdapterClosed)
}
