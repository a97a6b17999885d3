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

// FrameIdentifier is a 6-bit LIN frame identifier (0-63).
type FrameIdentifier byte

// Reserved identifiers defined by the LIN specification.
const (
	// MasterRequestID carries diagnostic requests from the master (0x3C).
	MasterRequestID FrameIdentifier = 0x3C
	// SlaveResponseID carries diagnostic responses from slaves (0x3D).
	SlaveResponseID FrameIdentifier = 0x3D

	// MaxFrameIdentifier is the highest valid frame identifier.
	MaxFrameIdentifier FrameIdentifier = 0x3F
)

// NewFrameIdentifier validates id and returns it as a FrameIdentifier.
// Values outside 0-63 fail with ErrInvalidIdentifier.
func NewFrameIdentifier(id byte) (FrameIdentifier, error) {
	if id > byte(MaxFrameIdentifier) {
		return 0, fmt.Errorf("identifier 0x%02X out of range: %w", id, ErrInvalidIdentifier)
	}
	return FrameIdentifier(id), nil
}

// Valid reports whether the identifier is within the 6-bit range.
func (id FrameIdentifier) Valid() bool {
	return id <= MaxFrameIdentifier
}

// IsDiagnostic reports whether the identifier is one of the reserved
// diagnostic identifiers (0x3C master request, 0x3D slave response).
func (id FrameIdentifier) IsDiagnostic() bool {
	return id == MasterRequestID || id == SlaveResponseID
}

// PID returns the protected identifier: the 6 identifier bits plus the two
// parity bits P0 (bit 6) and P1 (bit 7) defined by the LIN specification.
//
//	P0 = b0 XOR b1 XOR b2 XOR b4
//	P1 = NOT (b1 XOR b3 XOR b4 XOR b5)
func (id FrameIdentifier) PID() byte {
	b := byte(id)
	bit := func(n uint) byte { return (b >> n) & 1 }
	p0 := bit(0) ^ bit(1) ^ bit(2) ^ bit(4)
	p1 := ^(bit(1) ^ bit(3) ^ bit(4) ^ bit(5)) & 1
	return b | p0<<6 | p1<<7
}

// DecodePID extracts the frame identifier from a protected identifier byte.
// It recomputes both parity bits from the 6 identifier bits and fails with
// ErrIdentifierParity when the embedded parity does not match.
func DecodePID(pid byte) (FrameIdentifier, error) {
	id := FrameIdentifier(pid & 0x3F)
	if id.PID() != pid {
		return 0, fmt.Errorf("PID 0x%02X: %w", pid, ErrIdentifierParity)
	}
	return id, nil
}

// String renders the identifier in the conventional hex form.
func (id FrameIdentifier) String() string {
	return fmt.Sprintf("0x%02X", byte(id))
}
