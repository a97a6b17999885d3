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
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	lin "github.com/openlin-project/go-lin"
	linserial "github.com/openlin-project/go-lin/adapter/serial"
	"github.com/openlin-project/go-lin/internal/logging"
)

var (
	portName   string
	configPath string
	duration   time.Duration
	wakePin    string
	noEcho     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&portName, "port", "", "Serial port of the LIN transceiver")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "bus.yaml", "Bus description file")
	rootCmd.PersistentFlags().DurationVar(&duration, "duration", 0, "Run time (0 = until interrupted)")
	rootCmd.PersistentFlags().StringVar(&wakePin, "wake-pin", "", "GPIO name of the transceiver wake line")
	rootCmd.PersistentFlags().BoolVar(&noEcho, "no-echo", false, "Disable TX echo cancellation")

	rootCmd.AddCommand(masterCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(portsCmd)
}

// masterCmd drives the configured schedule as the bus master.
var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Drive the bus as the LIN master",
	Long: `Run the configured schedule table as the bus master.

Headers are emitted on the fixed timing grid from the bus description;
received responses and protocol errors are printed as they arrive.`,
	Example: `  # Drive bus.yaml on ttyUSB0 until interrupted
  linmon master --port /dev/ttyUSB0

  # Ten second run with a transceiver wake line on GPIO17
  linmon master --port /dev/ttyUSB0 --duration 10s --wake-pin GPIO17`,
	RunE: runMaster,
}

// monitorCmd observes the bus passively.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Passively monitor bus traffic",
	Long: `Attach to the bus as a silent slave node and print every frame
described in the bus description, along with protocol errors. The monitor
never publishes a response.`,
	RunE: runMonitor,
}

// portsCmd lists usable serial ports.
var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List usable serial ports",
	RunE: func(_ *cobra.Command, _ []string) error {
		ports, err := linserial.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Println("No usable serial ports found.")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

func openAdapter() (*linserial.Adapter, error) {
	if portName == "" {
		return nil, errors.New("--port is required")
	}
	opts := []linserial.Option{linserial.WithEchoCancellation(!noEcho)}
	if wakePin != "" {
		opts = append(opts, linserial.WithWakePin(wakePin))
	}
	return linserial.New(portName, opts...)
}

func runContext() (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if duration > 0 {
		return context.WithTimeout(ctx, duration)
	}
	return ctx, cancel
}

func runMaster(_ *cobra.Command, _ []string) error {
	cfg, err := LoadBusConfig(configPath)
	if err != nil {
		return err
	}
	table, err := cfg.ScheduleTable()
	if err != nil {
		return err
	}
	adapter, err := openAdapter()
	if err != nil {
		return err
	}

	session, err := lin.NewMasterSession(adapter, table, lin.WithBitrate(cfg.Bitrate))
	if err != nil {
		_ = adapter.Close()
		return err
	}

	ctx, cancel := runContext()
	defer cancel()
	if err := session.Start(ctx); err != nil {
		_ = session.Stop()
		return err
	}
	fmt.Printf("Driving %q on %s at %d bit/s. Ctrl-C to stop.\n", table.Name(), portName, cfg.Bitrate)

	drainSession(ctx, session)

	if err := session.Stop(); err != nil {
		return err
	}
	if err := session.Err(); err != nil {
		return err
	}
	m := session.Master().Metrics()
	fmt.Printf("slots=%d headers=%d responses=%d errors=%d\n",
		m.Slots, m.Headers, m.Responses, m.ProtocolErrors)
	return nil
}

func runMonitor(_ *cobra.Command, _ []string) error {
	cfg, err := LoadBusConfig(configPath)
	if err != nil {
		return err
	}
	table, err := cfg.SlaveTable()
	if err != nil {
		return err
	}
	adapter, err := openAdapter()
	if err != nil {
		return err
	}

	session, err := lin.NewSlaveSession(adapter, table, lin.WithBitrate(cfg.Bitrate))
	if err != nil {
		_ = adapter.Close()
		return err
	}

	ctx, cancel := runContext()
	defer cancel()
	if err := session.Start(ctx); err != nil {
		_ = session.Stop()
		return err
	}
	fmt.Printf("Monitoring %s at %d bit/s. Ctrl-C to stop.\n", portName, cfg.Bitrate)

	drainSession(ctx, session)

	if err := session.Stop(); err != nil {
		return err
	}
	if err := session.Err(); err != nil {
		return err
	}
	m := session.Slave().Metrics()
	fmt.Printf("headers=%d errors=%d\n", m.HeadersSeen, m.ProtocolErrors)
	return nil
}

// drainSession prints frame and error events until ctx ends.
func drainSession(ctx context.Context, session *lin.Session) {
	frames := session.Frames()
	errs := session.Errors()
	for {
		for {
			ev, ok := frames.TryNext()
			if !ok {
				break
			}
			fmt.Printf("%s %s %s %s\n",
				ev.Time.Format("15:04:05.000"), ev.Source, ev.ID, hex.EncodeToString(ev.Data))
			logging.LogFrame(ev.ID.String(), ev.Source.String(), ev.Data)
		}
		for {
			be, ok := errs.TryNext()
			if !ok {
				break
			}
			fmt.Printf("%s ERR %s %s\n", be.Time.Format("15:04:05.000"), be.ID, be.Kind)
			logging.LogBusError(be.ID.String(), be.Kind.String())
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}
