// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package isolation verifies that the daemon's Unix socket is closed
// to unprivileged principals. This is a negative test: the check
// passes only when the connection attempt itself is refused with a
// permission error at the transport layer — before any request
// payload could be processed. A successful connection, or any
// application-level error, fails the check.
//
// The check is meaningful only when run without privileges over the
// socket. [RunAsUser] re-executes the harness binary under an
// unprivileged identity (requires root) so the probing process has no
// relationship to the daemon's trusted group; [Checker.Check] performs
// the probe itself in the current process.
package isolation
