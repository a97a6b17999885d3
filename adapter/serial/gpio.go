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

package serial

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// wakePin abstracts the transceiver sleep/enable line so tests can stub it.
type wakePin interface {
	wake() error
	sleep() error
}

var hostInitOnce sync.Once

// gpioWakePin drives a periph.io GPIO connected to the transceiver's
// sleep/enable input. High keeps the transceiver in normal mode, low lets
// it fall back to sleep.
type gpioWakePin struct {
	pin gpio.PinOut
}

func openWakePin(name string) (wakePin, error) {
	var initErr error
	hostInitOnce.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("gpio host init: %w", initErr)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio pin %q not found", name)
	}
	return &gpioWakePin{pin: pin}, nil
}

func (p *gpioWakePin) wake() error {
	if err := p.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("drive wake pin high: %w", err)
	}
	return nil
}

func (p *gpioWakePin) sleep() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("drive wake pin low: %w", err)
	}
	return nil
}
