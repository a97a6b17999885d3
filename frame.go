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

// Wire structure constants.
const (
	// BreakByte is the in-band representation of the break condition. On a
	// real UART the break reads back as a 0x00 byte, which is what software
	// LIN nodes synchronize on.
	BreakByte = 0x00
	// SyncByte is the fixed 0x55 synchronization byte following the break.
	SyncByte = 0x55

	// MinDataLength and MaxDataLength bound the response payload size.
	MinDataLength = 1
	MaxDataLength = 8

	// HeaderLength is sync byte plus protected identifier.
	HeaderLength = 2
)

// Frame is a complete LIN frame: identifier, 1-8 data bytes and the
// checksum kind used for its response.
type Frame struct {
	Data     []byte
	ID       FrameIdentifier
	Checksum ChecksumKind
}

// Validate checks the frame invariants: a valid 6-bit identifier and a
// payload of 1-8 bytes.
func (f *Frame) Validate() error {
	if !f.ID.Valid() {
		return fmt.Errorf("frame %s: %w", f.ID, ErrInvalidIdentifier)
	}
	if len(f.Data) < MinDataLength || len(f.Data) > MaxDataLength {
		return fmt.Errorf("frame %s: %d data bytes: %w", f.ID, len(f.Data), ErrInvalidLength)
	}
	return nil
}

// EncodeHeader produces the header bytes for an identifier: sync byte plus
// protected identifier. The break condition precedes the header on the wire
// and is emitted by the adapter, not the codec.
func EncodeHeader(id FrameIdentifier) []byte {
	return []byte{SyncByte, id.PID()}
}

// EncodeResponse produces the response bytes for a frame: the data bytes
// followed by the checksum.
func EncodeResponse(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(f.Data)+1)
	out = append(out, f.Data...)
	out = append(out, Checksum(f.Checksum, f.ID.PID(), f.Data))
	return out, nil
}

// Encode produces the full wire image of a frame after the break: header
// bytes followed by the response bytes.
func Encode(f *Frame) ([]byte, error) {
	resp, err := EncodeResponse(f)
	if err != nil {
		return nil, err
	}
	return append(EncodeHeader(f.ID), resp...), nil
}

// DecodeResponse validates the response portion of a frame (data bytes plus
// checksum) received for a known identifier. length is the declared data
// length for the identifier. Fails with ErrShortFrame when fewer bytes than
// length+1 are available and ErrChecksumMismatch when the transmitted
// checksum does not match the recomputed one.
func DecodeResponse(id FrameIdentifier, kind ChecksumKind, length int, raw []byte) ([]byte, error) {
	if length < MinDataLength || length > MaxDataLength {
		return nil, fmt.Errorf("declared length %d: %w", length, ErrInvalidLength)
	}
	if len(raw) < length+1 {
		return nil, fmt.Errorf("frame %s: got %d of %d response bytes: %w",
			id, len(raw), length+1, ErrShortFrame)
	}
	data, sum := raw[:length], raw[length]
	if !VerifyChecksum(kind, id.PID(), data, sum) {
		return nil, fmt.Errorf("frame %s: got 0x%02X want 0x%02X: %w",
			id, sum, Checksum(kind, id.PID(), data), ErrChecksumMismatch)
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

// Decode parses a full frame image (sync, PID, data, checksum) with the
// declared data length. Fails with ErrFraming on a bad sync byte,
// ErrIdentifierParity on a bad PID, and the DecodeResponse errors otherwise.
func Decode(raw []byte, kind ChecksumKind, length int) (*Frame, error) {
	if len(raw) < HeaderLength {
		return nil, fmt.Errorf("got %d header bytes: %w", len(raw), ErrShortFrame)
	}
	if raw[0] != SyncByte {
		return nil, fmt.Errorf("sync byte 0x%02X: %w", raw[0], ErrFraming)
	}
	id, err := DecodePID(raw[1])
	if err != nil {
		return nil, err
	}
	data, err := DecodeResponse(id, kind, length, raw[HeaderLength:])
	if err != nil {
		return nil, err
	}
	return &Frame{ID: id, Data: data, Checksum: kind}, nil
}
