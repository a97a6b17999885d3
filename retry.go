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
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior for adapter operations such as
// port configuration at session start.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (0 = no retry)
	MaxAttempts int
	// InitialBackoff is the initial backoff duration
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which the backoff increases
	BackoffMultiplier float64
	// Jitter adds randomness to backoff to avoid thundering herd
	Jitter float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// RetryWithConfig executes a function with retry logic. Non-retryable
// errors abort immediately; see IsRetryable for the classification. The
// caller bounds the total time through ctx.
func RetryWithConfig(ctx context.Context, config *RetryConfig, retryFunc RetryableFunc) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts <= 0 {
		return retryFunc()
	}

	var lastErr error
	backoff := config.InitialBackoff
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return lastErr
			}
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}

		err := retryFunc()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err

		if attempt == config.MaxAttempts-1 {
			break
		}
		if err := sleepWithContext(ctx, jitteredBackoff(backoff, config.Jitter), lastErr); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, config)
	}
	return lastErr
}

func sleepWithContext(ctx context.Context, sleep time.Duration, lastErr error) error {
	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return lastErr
	case <-timer.C:
		return nil
	}
}

func nextBackoff(backoff time.Duration, config *RetryConfig) time.Duration {
	next := time.Duration(float64(backoff) * config.BackoffMultiplier)
	if next > config.MaxBackoff {
		return config.MaxBackoff
	}
	return next
}

// jitteredBackoff stretches the backoff by up to jitterFactor of itself.
func jitteredBackoff(backoff time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return backoff
	}
	var randBytes [8]byte
	if _, err := rand.Read(randBytes[:]); err != nil {
		return backoff
	}
	randFloat := float64(binary.LittleEndian.Uint64(randBytes[:])) / float64(1<<64)
	return backoff + time.Duration(randFloat*float64(backoff)*jitterFactor)
}
