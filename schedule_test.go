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
	"github.com/stretchr/testify/require"
)

func signalSlot(id FrameIdentifier, length int, delay time.Duration) ScheduleEntry {
	return ScheduleEntry{
		Frame: FrameDef{ID: id, Length: length, Checksum: ChecksumEnhanced, Dir: SlavePublish},
		Delay: delay,
	}
}

func TestNewScheduleTable(t *testing.T) {
	t.Parallel()

	tab, err := NewScheduleTable("normal",
		signalSlot(0x10, 3, 50*time.Millisecond),
		signalSlot(0x11, 8, 100*time.Millisecond),
		signalSlot(0x10, 3, 50*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, "normal", tab.Name())
	assert.Equal(t, 3, tab.Len())
	assert.Equal(t, 200*time.Millisecond, tab.CycleTime())
}

func TestNewScheduleTable_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		entries []ScheduleEntry
	}{
		{
			name:    "Empty table",
			entries: nil,
			wantErr: ErrEmptySchedule,
		},
		{
			name: "Identifier out of range",
			entries: []ScheduleEntry{
				signalSlot(0x40, 2, 50 * time.Millisecond),
			},
			wantErr: ErrInvalidIdentifier,
		},
		{
			name: "Zero length",
			entries: []ScheduleEntry{
				signalSlot(0x10, 0, 50 * time.Millisecond),
			},
			wantErr: ErrInvalidLength,
		},
		{
			name: "Diagnostic with enhanced checksum",
			entries: []ScheduleEntry{
				{
					Frame: FrameDef{ID: MasterRequestID, Length: 8, Checksum: ChecksumEnhanced, Dir: MasterPublish},
					Delay: 50 * time.Millisecond,
				},
			},
			wantErr: ErrChecksumKind,
		},
		{
			name: "Conflicting checksum kinds for one identifier",
			entries: []ScheduleEntry{
				signalSlot(0x10, 3, 50 * time.Millisecond),
				{
					Frame: FrameDef{ID: 0x10, Length: 3, Checksum: ChecksumClassic, Dir: SlavePublish},
					Delay: 50 * time.Millisecond,
				},
			},
			wantErr: ErrChecksumKind,
		},
		{
			name: "Conflicting lengths for one identifier",
			entries: []ScheduleEntry{
				signalSlot(0x10, 3, 50 * time.Millisecond),
				signalSlot(0x10, 4, 50 * time.Millisecond),
			},
			wantErr: ErrInvalidLength,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewScheduleTable("bad", tt.entries...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewScheduleTable_NonPositiveDelay(t *testing.T) {
	t.Parallel()

	_, err := NewScheduleTable("bad", signalSlot(0x10, 3, 0))
	require.Error(t, err)
	_, err = NewScheduleTable("bad", signalSlot(0x10, 3, -time.Millisecond))
	require.Error(t, err)
}

// TestScheduleTable_CyclicEntry checks that iteration wraps after the last
// slot.
func TestScheduleTable_CyclicEntry(t *testing.T) {
	t.Parallel()

	tab, err := NewScheduleTable("wrap",
		signalSlot(0x01, 2, 10*time.Millisecond),
		signalSlot(0x02, 2, 10*time.Millisecond),
	)
	require.NoError(t, err)

	assert.Equal(t, FrameIdentifier(0x01), tab.Entry(0).Frame.ID)
	assert.Equal(t, FrameIdentifier(0x02), tab.Entry(1).Frame.ID)
	assert.Equal(t, FrameIdentifier(0x01), tab.Entry(2).Frame.ID)
	assert.Equal(t, FrameIdentifier(0x02), tab.Entry(5).Frame.ID)
}

// TestScheduleTable_Immutable checks that the caller's entry slice does not
// alias the table.
func TestScheduleTable_Immutable(t *testing.T) {
	t.Parallel()

	entries := []ScheduleEntry{signalSlot(0x10, 3, 50 * time.Millisecond)}
	tab, err := NewScheduleTable("frozen", entries...)
	require.NoError(t, err)

	entries[0].Frame.ID = 0x20
	assert.Equal(t, FrameIdentifier(0x10), tab.Entry(0).Frame.ID)
}
