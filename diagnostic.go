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

// DiagnosticFrameLength is the fixed payload size of the reserved
// diagnostic frames 0x3C and 0x3D.
const DiagnosticFrameLength = 8

// DefaultDiagnosticQueueDepth bounds the request and response queues.
const DefaultDiagnosticQueueDepth = 8

// DiagnosticRequest is one master-request (0x3C) payload. Requests are
// enqueued by the application and transmitted by the scheduler the next
// time a 0x3C slot comes up in the table.
type DiagnosticRequest struct {
	Data [DiagnosticFrameLength]byte
}

// NewDiagnosticRequest builds a request from up to 8 payload bytes; the
// remainder is filled with 0xFF as the LIN transport layer prescribes for
// unused bytes.
func NewDiagnosticRequest(payload []byte) (DiagnosticRequest, error) {
	var req DiagnosticRequest
	if len(payload) > DiagnosticFrameLength {
		return req, fmt.Errorf("diagnostic payload %d bytes: %w", len(payload), ErrInvalidLength)
	}
	for i := range req.Data {
		req.Data[i] = 0xFF
	}
	copy(req.Data[:], payload)
	return req, nil
}

// DiagnosticResponse is one validated slave-response (0x3D) payload
// collected from a 0x3D slot.
type DiagnosticResponse struct {
	Time time.Time
	Data [DiagnosticFrameLength]byte
}

// SleepRequest returns the go-to-sleep master request defined by the LIN
// specification: NAD 0x00 followed by 0xFF filler.
func SleepRequest() DiagnosticRequest {
	return DiagnosticRequest{Data: [DiagnosticFrameLength]byte{
		0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	}}
}
