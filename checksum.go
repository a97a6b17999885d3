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

// ChecksumKind selects the LIN checksum model for a frame.
//
// The kind is fixed per identifier by the protocol version of the node
// that publishes the frame and must stay consistent for the lifetime of a
// bus configuration. Diagnostic frames (0x3C/0x3D) always use the classic
// model regardless of protocol version.
type ChecksumKind int

const (
	// ChecksumClassic covers the data bytes only (LIN 1.x, diagnostics).
	ChecksumClassic ChecksumKind = iota
	// ChecksumEnhanced covers the protected identifier and the data bytes
	// (LIN 2.x signal frames).
	ChecksumEnhanced
)

// String returns the lowercase name of the checksum kind.
func (k ChecksumKind) String() string {
	switch k {
	case ChecksumClassic:
		return "classic"
	case ChecksumEnhanced:
		return "enhanced"
	default:
		return "unknown"
	}
}

// Checksum computes the LIN checksum byte: the inverted 8-bit sum with
// end-around carry over the data bytes, seeded with the PID byte for the
// enhanced model.
func Checksum(kind ChecksumKind, pid byte, data []byte) byte {
	var sum uint16
	if kind == ChecksumEnhanced {
		sum = uint16(pid)
	}
	for _, b := range data {
		sum += uint16(b)
		if sum >= 0x100 {
			sum = (sum & 0xFF) + 1 // end-around carry
		}
	}
	return ^byte(sum)
}

// VerifyChecksum reports whether got is the correct checksum for the given
// kind, PID and data bytes.
func VerifyChecksum(kind ChecksumKind, pid byte, data []byte, got byte) bool {
	return Checksum(kind, pid, data) == got
}
