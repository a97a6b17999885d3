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

// Linmon is a LIN bus utility built on the go-lin stack.
//
// It can drive a schedule as the bus master, observe traffic as a passive
// monitor and enumerate usable serial ports. The bus layout (frames,
// lengths, checksum model, slot delays) is described in a YAML file shared
// between the master and monitor commands.
//
// Usage:
//
//	linmon [command] [flags]
//
// See 'linmon --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlin-project/go-lin/internal/logging"
	"github.com/openlin-project/go-lin/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "linmon",
	Short: "LIN Bus Master and Monitor Utility",
	Long: `A utility for exercising and observing LIN buses.

Drives a schedule table as the bus master, passively monitors traffic as a
slave node, and enumerates serial ports with a usable LIN transceiver.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("linmon %s (commit: %s)\n", version.Version, version.Commit)
	},
}
