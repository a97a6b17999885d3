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

import "fmt"

// DefaultFaultThreshold is how many consecutive adapter faults on the same
// operation escalate to a SessionFault.
const DefaultFaultThreshold = 3

// Config carries the tunable parameters of a Session.
type Config struct {
	// RetryConfig governs retries when configuring the adapter at start.
	RetryConfig *RetryConfig
	// Bitrate in bits per second.
	Bitrate uint32
	// ResponseMargin is the factor applied to the nominal response
	// transmission time when computing the response timeout.
	ResponseMargin float64
	// FaultThreshold is the consecutive adapter fault count that stops the
	// session with a SessionFault.
	FaultThreshold int
	// DiagnosticQueueDepth bounds the diagnostic request and response
	// queues.
	DiagnosticQueueDepth int
	// EventBuffer is the capacity of the frame and error sinks.
	EventBuffer int
}

// DefaultSessionConfig returns the default session configuration.
func DefaultSessionConfig() *Config {
	return &Config{
		Bitrate:              DefaultBitrate,
		ResponseMargin:       DefaultResponseMargin,
		FaultThreshold:       DefaultFaultThreshold,
		DiagnosticQueueDepth: DefaultDiagnosticQueueDepth,
		EventBuffer:          DefaultEventBuffer,
		RetryConfig:          DefaultRetryConfig(),
	}
}

// Option configures a Session at construction time.
type Option func(*Config) error

// WithBitrate sets the bus bitrate.
func WithBitrate(bitrate uint32) Option {
	return func(c *Config) error {
		if bitrate == 0 {
			return fmt.Errorf("bitrate must be positive")
		}
		c.Bitrate = bitrate
		return nil
	}
}

// WithResponseMargin sets the response timeout margin factor.
func WithResponseMargin(margin float64) Option {
	return func(c *Config) error {
		if margin <= 0 {
			return fmt.Errorf("response margin must be positive, got %v", margin)
		}
		c.ResponseMargin = margin
		return nil
	}
}

// WithFaultThreshold sets the consecutive adapter fault escalation count.
func WithFaultThreshold(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("fault threshold must be at least 1, got %d", n)
		}
		c.FaultThreshold = n
		return nil
	}
}

// WithDiagnosticQueueDepth bounds the diagnostic queues.
func WithDiagnosticQueueDepth(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("diagnostic queue depth must be at least 1, got %d", n)
		}
		c.DiagnosticQueueDepth = n
		return nil
	}
}

// WithEventBufferSize sets the capacity of the frame and error sinks.
func WithEventBufferSize(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("event buffer size must be at least 1, got %d", n)
		}
		c.EventBuffer = n
		return nil
	}
}

// WithRetryConfig sets the retry policy used when configuring the adapter.
func WithRetryConfig(rc *RetryConfig) Option {
	return func(c *Config) error {
		c.RetryConfig = rc
		return nil
	}
}
