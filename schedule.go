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
	"fmt"
	"time"
)

// FrameDirection identifies which node publishes a frame's response.
type FrameDirection int

const (
	// SlavePublish: the master emits the header, a slave supplies the
	// response (the master subscribes).
	SlavePublish FrameDirection = iota
	// MasterPublish: the master emits both header and response.
	MasterPublish
)

// String returns the lowercase direction name.
func (d FrameDirection) String() string {
	if d == MasterPublish {
		return "master_publish"
	}
	return "slave_publish"
}

// FrameDef describes one frame in the bus configuration: identifier, data
// length, checksum model and publishing direction. An identifier maps to
// exactly one definition for the lifetime of a bus configuration.
type FrameDef struct {
	ID       FrameIdentifier
	Length   int
	Checksum ChecksumKind
	Dir      FrameDirection
}

// validate checks the definition invariants, including the LIN 2.x rule
// that diagnostic frames always use the classic checksum.
func (d FrameDef) validate() error {
	if !d.ID.Valid() {
		return fmt.Errorf("frame %s: %w", d.ID, ErrInvalidIdentifier)
	}
	if d.Length < MinDataLength || d.Length > MaxDataLength {
		return fmt.Errorf("frame %s: length %d: %w", d.ID, d.Length, ErrInvalidLength)
	}
	if d.ID.IsDiagnostic() && d.Checksum != ChecksumClassic {
		return fmt.Errorf("diagnostic frame %s requires classic checksum: %w", d.ID, ErrChecksumKind)
	}
	return nil
}

// ScheduleEntry is one slot in a schedule table: the frame to request and
// the delay until the next slot starts. The delay is the slot length; it
// bounds header emission, response collection and validation.
type ScheduleEntry struct {
	Frame FrameDef
	Delay time.Duration
}

// ScheduleTable is the master's named, ordered, cyclic plan of frame slots.
// After the last entry, iteration wraps to the first. Tables are immutable
// once constructed; table switching swaps the whole reference at a slot
// boundary.
type ScheduleTable struct {
	name    string
	entries []ScheduleEntry
}

// NewScheduleTable validates the entries and builds an immutable table.
// It fails with ErrEmptySchedule for zero entries, and with the FrameDef
// validation errors or ErrChecksumKind/ErrInvalidLength when the same
// identifier appears with conflicting definitions.
func NewScheduleTable(name string, entries ...ScheduleEntry) (*ScheduleTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("table %q: %w", name, ErrEmptySchedule)
	}
	seen := make(map[FrameIdentifier]FrameDef, len(entries))
	for i, e := range entries {
		if err := e.Frame.validate(); err != nil {
			return nil, fmt.Errorf("table %q entry %d: %w", name, i, err)
		}
		if e.Delay <= 0 {
			return nil, fmt.Errorf("table %q entry %d: non-positive delay %v", name, i, e.Delay)
		}
		if prev, ok := seen[e.Frame.ID]; ok {
			if prev.Checksum != e.Frame.Checksum {
				return nil, fmt.Errorf("table %q: frame %s: %w", name, e.Frame.ID, ErrChecksumKind)
			}
			if prev.Length != e.Frame.Length {
				return nil, fmt.Errorf("table %q: frame %s redeclared with length %d: %w",
					name, e.Frame.ID, e.Frame.Length, ErrInvalidLength)
			}
		} else {
			seen[e.Frame.ID] = e.Frame
		}
	}
	tab := &ScheduleTable{
		name:    name,
		entries: make([]ScheduleEntry, len(entries)),
	}
	copy(tab.entries, entries)
	return tab, nil
}

// Name returns the table name.
func (t *ScheduleTable) Name() string {
	return t.name
}

// Len returns the number of slots in one pass of the table.
func (t *ScheduleTable) Len() int {
	return len(t.entries)
}

// Entry returns the slot at index i; iteration is cyclic, so any
// non-negative i is valid.
func (t *ScheduleTable) Entry(i int) ScheduleEntry {
	return t.entries[i%len(t.entries)]
}

// CycleTime returns the duration of one full pass of the table.
func (t *ScheduleTable) CycleTime() time.Duration {
	var total time.Duration
	for _, e := range t.entries {
		total += e.Delay
	}
	return total
}
