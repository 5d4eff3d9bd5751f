// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package version records the build version of the cordon-verify
// binaries. The Commit variable is injected at build time via
// -ldflags; source builds report "dev".
package version

import "fmt"

// Version is the semantic version of this release.
const Version = "0.1.0"

// Commit is the VCS revision the binary was built from. Overridden at
// build time; "dev" for plain source builds.
var Commit = "dev"

// Full returns the complete version string, e.g. "0.1.0 (dev)".
func Full() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}

// Print writes the standard version line for the named binary to
// stdout.
func Print(binary string) {
	fmt.Printf("%s %s\n", binary, Full())
}
