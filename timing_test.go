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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestByteTime(t *testing.T) {
	t.Parallel()

	// 10 bits per byte at 19200 bit/s is 520.833us.
	bt := ByteTime(19200)
	assert.InDelta(t, 520833, bt.Nanoseconds(), 1000)

	// At 9600 bit/s the byte time doubles.
	assert.InDelta(t, float64(2*bt.Nanoseconds()), float64(ByteTime(9600).Nanoseconds()), 2000)

	// Zero falls back to the default bitrate.
	assert.Equal(t, ByteTime(DefaultBitrate), ByteTime(0))
}

func TestResponseTimeout(t *testing.T) {
	t.Parallel()

	// 3 data bytes plus checksum at 19200 with the default margin:
	// 520.833us x 4 x 1.4 = 2.9167ms.
	timeout := ResponseTimeout(19200, 3, DefaultResponseMargin)
	assert.InDelta(t, 2916666, timeout.Nanoseconds(), 10000)

	// A longer frame widens the window.
	assert.Greater(t, ResponseTimeout(19200, 8, DefaultResponseMargin), timeout)

	// A non-positive margin falls back to the default.
	assert.Equal(t, timeout, ResponseTimeout(19200, 3, 0))
}

func TestHeaderTime(t *testing.T) {
	t.Parallel()

	ht := HeaderTime(19200)
	// Break plus sync plus PID must exceed three nominal byte times and
	// stay under four.
	assert.Greater(t, ht, 3*ByteTime(19200))
	assert.Less(t, ht, 4*ByteTime(19200))
	assert.Less(t, ht, 3*time.Millisecond)
}

func TestDefaultSessionConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultSessionConfig()
	assert.Equal(t, uint32(DefaultBitrate), cfg.Bitrate)
	assert.InDelta(t, DefaultResponseMargin, cfg.ResponseMargin, 0.001)
	assert.Equal(t, DefaultFaultThreshold, cfg.FaultThreshold)
	assert.Equal(t, DefaultDiagnosticQueueDepth, cfg.DiagnosticQueueDepth)
	assert.Equal(t, DefaultEventBuffer, cfg.EventBuffer)
	assert.NotNil(t, cfg.RetryConfig)
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultSessionConfig()
	opts := []Option{
		WithBitrate(9600),
		WithResponseMargin(2.0),
		WithFaultThreshold(5),
		WithDiagnosticQueueDepth(2),
		WithEventBufferSize(16),
	}
	for _, opt := range opts {
		assert.NoError(t, opt(cfg))
	}
	assert.Equal(t, uint32(9600), cfg.Bitrate)
	assert.InDelta(t, 2.0, cfg.ResponseMargin, 0.001)
	assert.Equal(t, 5, cfg.FaultThreshold)
	assert.Equal(t, 2, cfg.DiagnosticQueueDepth)
	assert.Equal(t, 16, cfg.EventBuffer)
}

func TestConfigOptions_Invalid(t *testing.T) {
	t.Parallel()

	cfg := DefaultSessionConfig()
	assert.Error(t, WithBitrate(0)(cfg))
	assert.Error(t, WithResponseMargin(-1)(cfg))
	assert.Error(t, WithFaultThreshold(0)(cfg))
	assert.Error(t, WithDiagnosticQueueDepth(0)(cfg))
	assert.Error(t, WithEventBufferSize(0)(cfg))
}
