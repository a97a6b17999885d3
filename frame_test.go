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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeader(t *testing.T) {
	t.Parallel()

	header := EncodeHeader(0x10)
	require.Len(t, header, HeaderLength)
	assert.Equal(t, byte(SyncByte), header[0])
	assert.Equal(t, byte(0x50), header[1])
}

func TestEncodeResponse(t *testing.T) {
	t.Parallel()

	frame := &Frame{ID: 0x10, Data: []byte{0x01, 0x02, 0x03}, Checksum: ChecksumClassic}
	resp, err := EncodeResponse(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0xF9}, resp)
}

func TestEncodeResponse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		frame   *Frame
		wantErr error
		name    string
	}{
		{
			name:    "Out of range identifier",
			frame:   &Frame{ID: 0x40, Data: []byte{0x01}},
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "Empty data",
			frame:   &Frame{ID: 0x10, Data: nil},
			wantErr: ErrInvalidLength,
		},
		{
			name:    "Nine data bytes",
			frame:   &Frame{ID: 0x10, Data: make([]byte, 9)},
			wantErr: ErrInvalidLength,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := EncodeResponse(tt.frame)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// TestEncodeDecode_RoundTrip exercises every payload length with both
// checksum models.
func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, kind := range []ChecksumKind{ChecksumClassic, ChecksumEnhanced} {
		for length := MinDataLength; length <= MaxDataLength; length++ {
			data := make([]byte, length)
			for i := range data {
				data[i] = byte(0xA0 + i)
			}
			in := &Frame{ID: 0x21, Data: data, Checksum: kind}

			raw, err := Encode(in)
			require.NoError(t, err)
			require.Len(t, raw, HeaderLength+length+1)

			out, err := Decode(raw, kind, length)
			require.NoError(t, err, "kind %s length %d", kind, length)
			assert.Equal(t, in.ID, out.ID)
			assert.Equal(t, data, out.Data)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	good, err := Encode(&Frame{ID: 0x21, Data: []byte{0x11, 0x22}, Checksum: ChecksumEnhanced})
	require.NoError(t, err)

	corrupt := func(i int) []byte {
		c := make([]byte, len(good))
		copy(c, good)
		c[i] ^= 0x01
		return c
	}

	tests := []struct {
		wantErr error
		name    string
		raw     []byte
	}{
		{name: "Truncated header", raw: good[:1], wantErr: ErrShortFrame},
		{name: "Bad sync byte", raw: corrupt(0), wantErr: ErrFraming},
		{name: "Corrupted PID", raw: corrupt(1), wantErr: ErrIdentifierParity},
		{name: "Corrupted data byte", raw: corrupt(2), wantErr: ErrChecksumMismatch},
		{name: "Corrupted checksum", raw: corrupt(4), wantErr: ErrChecksumMismatch},
		{name: "Missing checksum byte", raw: good[:len(good)-1], wantErr: ErrShortFrame},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode(tt.raw, ChecksumEnhanced, 2)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Parallel()

	t.Run("Trailing bytes ignored", func(t *testing.T) {
		t.Parallel()

		raw := []byte{0x01, 0x02, 0x03, 0xF9, 0xAA}
		data, err := DecodeResponse(0x10, ChecksumClassic, 3, raw)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02, 0x03}, data)
	})

	t.Run("Declared length out of range", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeResponse(0x10, ChecksumClassic, 0, []byte{0xFF})
		require.ErrorIs(t, err, ErrInvalidLength)
		_, err = DecodeResponse(0x10, ChecksumClassic, 9, make([]byte, 10))
		require.ErrorIs(t, err, ErrInvalidLength)
	})

	t.Run("Returned data is a copy", func(t *testing.T) {
		t.Parallel()

		raw := []byte{0x01, 0x02, 0x03, 0xF9}
		data, err := DecodeResponse(0x10, ChecksumClassic, 3, raw)
		require.NoError(t, err)
		raw[0] = 0xEE
		assert.Equal(t, byte(0x01), data[0])
	})
}
