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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRetryConfig(t *testing.T) {
	t.Parallel()

	config := DefaultRetryConfig()

	assert.NotNil(t, config)
	assert.Positive(t, config.MaxAttempts)
	assert.Greater(t, config.InitialBackoff, time.Duration(0))
	assert.Greater(t, config.MaxBackoff, config.InitialBackoff)
	assert.Greater(t, config.BackoffMultiplier, 1.0)
	assert.GreaterOrEqual(t, config.Jitter, 0.0)
	assert.LessOrEqual(t, config.Jitter, 1.0)
}

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryWithConfig_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return NewAdapterError("Configure", "mock", errors.New("busy"), AdapterErrorTransient)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithConfig_StopsOnNonRetryable(t *testing.T) {
	t.Parallel()

	permanent := NewAdapterError("Configure", "mock", errors.New("gone"), AdapterErrorPermanent)
	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithConfig_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	transient := NewAdapterError("Configure", "mock", errors.New("busy"), AdapterErrorTransient)
	attempts := 0
	err := RetryWithConfig(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return transient
	})
	require.ErrorIs(t, err, transient)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithConfig_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	cfg := fastRetryConfig()
	cfg.MaxAttempts = 0
	attempts := 0
	err := RetryWithConfig(context.Background(), cfg, func() error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithConfig_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithConfig(ctx, fastRetryConfig(), func() error {
		return NewAdapterError("Configure", "mock", errors.New("busy"), AdapterErrorTransient)
	})
	require.Error(t, err)
}

func TestNextBackoff_Caps(t *testing.T) {
	t.Parallel()

	cfg := &RetryConfig{BackoffMultiplier: 10.0, MaxBackoff: 50 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, nextBackoff(20*time.Millisecond, cfg))
	assert.Equal(t, 40*time.Millisecond, nextBackoff(4*time.Millisecond,
		&RetryConfig{BackoffMultiplier: 10.0, MaxBackoff: time.Second}))
}

func TestJitteredBackoff(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond

	// No jitter returns the base unchanged.
	assert.Equal(t, base, jitteredBackoff(base, 0))

	// With jitter the result stays within [base, base*(1+factor)].
	for i := 0; i < 20; i++ {
		got := jitteredBackoff(base, 0.5)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+base/2)
	}
}
