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

// Package lin implements a hardware-agnostic protocol stack for the LIN
// (Local Interconnect Network) automotive bus.
//
// The package provides the complete master and slave side of the protocol:
// a pure frame codec (protected identifiers, classic and enhanced
// checksums), cyclic schedule tables, a schedule-driven master that emits
// headers and collects responses on a fixed timing grid, a slave response
// engine that reacts to received headers from a frame table, and diagnostic
// (0x3C/0x3D) request/response transactions layered on the periodic
// schedule.
//
// Hardware access goes exclusively through the Adapter interface, so the
// protocol engine never depends on a specific vendor driver. The
// adapter/serial package talks to UART-attached LIN transceivers and the
// adapter/loopback package provides an in-memory bus for tests and
// simulations.
//
// A minimal master looks like:
//
//	table, err := lin.NewScheduleTable("main",
//	    lin.ScheduleEntry{Frame: lin.FrameDef{ID: 0x10, Length: 3, Checksum: lin.ChecksumClassic}, Delay: 50 * time.Millisecond},
//	)
//	if err != nil { ... }
//	sess, err := lin.NewMasterSession(adapter, table)
//	if err != nil { ... }
//	if err := sess.Start(ctx); err != nil { ... }
//	defer sess.Stop()
//
// Received frames and bus errors are consumed from the session's event
// sinks; delivery is best-effort with a bounded drop-oldest buffer so that
// a slow consumer can never stall the bus timing.
package lin
