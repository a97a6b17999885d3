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

import "time"

// Timing defaults. The response margin is the tunable factor the LIN
// specification applies on top of the nominal transmission time
// (T_Frame_Maximum = 1.4 x T_Frame_Nominal).
const (
	DefaultBitrate        = 19200
	DefaultResponseMargin = 1.4

	// bitsPerByte covers start bit, 8 data bits and stop bit on the UART.
	bitsPerByte = 10
)

// ByteTime returns the nominal transmission time of one byte at the given
// bitrate.
func ByteTime(bitrate uint32) time.Duration {
	if bitrate == 0 {
		bitrate = DefaultBitrate
	}
	return time.Duration(bitsPerByte) * time.Second / time.Duration(bitrate)
}

// ResponseTimeout returns the bounded window the master waits for a slave
// response of the given data length: byte time x (length + checksum) x
// margin.
func ResponseTimeout(bitrate uint32, length int, margin float64) time.Duration {
	if margin <= 0 {
		margin = DefaultResponseMargin
	}
	nominal := ByteTime(bitrate) * time.Duration(length+1)
	return time.Duration(float64(nominal) * margin)
}

// HeaderTime returns the nominal transmission time of break, sync and PID.
// The break counts as roughly 1.4 byte times (13 dominant bits plus the
// delimiter).
func HeaderTime(bitrate uint32) time.Duration {
	bt := ByteTime(bitrate)
	return bt + bt*2/5 + bt*HeaderLength
}
