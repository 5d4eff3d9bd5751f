// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"os"
	"strings"
)

// SupportsFullClusterSetup reports whether the environment runs a
// full init system able to supervise cluster services: systemd's
// runtime directory exists and PID 1 actually is systemd. Minimal
// containers fail both, and the destructive cluster-formation step is
// skipped there rather than failed.
func SupportsFullClusterSetup() bool {
	if _, err := os.Stat("/run/systemd/system"); err != nil {
		return false
	}
	comm, err := os.ReadFile("/proc/1/comm")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(comm)) == "systemd"
}
