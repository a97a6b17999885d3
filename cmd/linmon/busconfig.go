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

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	lin "github.com/openlin-project/go-lin"
)

// BusConfig is the YAML description of a bus: the schedule the master
// walks and, implicitly, the frames a monitor should decode.
//
// Example:
//
//	name: demo
//	bitrate: 19200
//	schedule:
//	  - id: 0x10
//	    length: 3
//	    checksum: classic
//	    publisher: slave
//	    delay_ms: 50
type BusConfig struct {
	Name     string        `yaml:"name"`
	Schedule []FrameConfig `yaml:"schedule"`
	Bitrate  uint32        `yaml:"bitrate"`
}

// FrameConfig describes one schedule slot.
type FrameConfig struct {
	Checksum  string `yaml:"checksum"`  // "classic" or "enhanced"
	Publisher string `yaml:"publisher"` // "master" or "slave"
	Data      []byte `yaml:"data"`      // initial data for master-published frames
	ID        int    `yaml:"id"`
	Length    int    `yaml:"length"`
	DelayMs   int    `yaml:"delay_ms"`
}

// LoadBusConfig reads and validates a bus description file.
func LoadBusConfig(path string) (*BusConfig, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is an operator-supplied flag
	if err != nil {
		return nil, fmt.Errorf("read bus config: %w", err)
	}
	var cfg BusConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse bus config %s: %w", path, err)
	}
	if len(cfg.Schedule) == 0 {
		return nil, fmt.Errorf("bus config %s: schedule is empty", path)
	}
	if cfg.Bitrate == 0 {
		cfg.Bitrate = lin.DefaultBitrate
	}
	if cfg.Name == "" {
		cfg.Name = "bus"
	}
	return &cfg, nil
}

// frameDef translates one YAML entry into a frame definition.
func (f FrameConfig) frameDef() (lin.FrameDef, error) {
	id, err := lin.NewFrameIdentifier(byte(f.ID))
	if err != nil {
		return lin.FrameDef{}, fmt.Errorf("frame 0x%02X: %w", f.ID, err)
	}

	kind := lin.ChecksumEnhanced
	switch f.Checksum {
	case "", "enhanced":
	case "classic":
		kind = lin.ChecksumClassic
	default:
		return lin.FrameDef{}, fmt.Errorf("frame %s: unknown checksum %q", id, f.Checksum)
	}

	dir := lin.SlavePublish
	switch f.Publisher {
	case "", "slave":
	case "master":
		dir = lin.MasterPublish
	default:
		return lin.FrameDef{}, fmt.Errorf("frame %s: unknown publisher %q", id, f.Publisher)
	}

	return lin.FrameDef{ID: id, Length: f.Length, Checksum: kind, Dir: dir}, nil
}

// ScheduleTable builds the master schedule described by the config.
func (c *BusConfig) ScheduleTable() (*lin.ScheduleTable, error) {
	entries := make([]lin.ScheduleEntry, 0, len(c.Schedule))
	for _, f := range c.Schedule {
		def, err := f.frameDef()
		if err != nil {
			return nil, err
		}
		delay := time.Duration(f.DelayMs) * time.Millisecond
		if delay <= 0 {
			delay = 50 * time.Millisecond
		}
		entries = append(entries, lin.ScheduleEntry{Frame: def, Delay: delay})
	}
	return lin.NewScheduleTable(c.Name, entries...)
}

// SlaveTable builds a subscribe-everything frame table for passive
// monitoring of the configured bus.
func (c *BusConfig) SlaveTable() (*lin.SlaveResponseTable, error) {
	entries := make([]lin.SlaveFrameEntry, 0, len(c.Schedule))
	for _, f := range c.Schedule {
		def, err := f.frameDef()
		if err != nil {
			return nil, err
		}
		entries = append(entries, lin.SlaveFrameEntry{
			ID:       def.ID,
			Role:     lin.RoleSubscribe,
			Length:   def.Length,
			Checksum: def.Checksum,
		})
	}
	return lin.NewSlaveResponseTable(entries...)
}
