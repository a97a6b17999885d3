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

//go:build linux

package serial

import (
	"fmt"

	"go.bug.st/serial"
	"golang.org/x/sys/unix"
)

// ListPorts enumerates serial devices the current user can actually open.
// Ports the process lacks read/write permission on (typically missing
// dialout group membership) are filtered out rather than failing later at
// Open.
func ListPorts() ([]string, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	usable := make([]string, 0, len(names))
	for _, name := range names {
		if unix.Access(name, unix.R_OK|unix.W_OK) == nil {
			usable = append(usable, name)
		}
	}
	return usable, nil
}
