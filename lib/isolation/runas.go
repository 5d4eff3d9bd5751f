// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"
)

// RunAsUser re-executes the harness's isolation probe as another
// user, so the probing process has the unprivileged identity rather
// than just pretending to. The binary is invoked as
//
//	<binary> isolation --socket <socketPath>
//
// with the process credentials set to the named user's uid/gid.
// Requires the current process to be privileged enough to switch
// credentials (root); the probe's exit status is the verdict.
func RunAsUser(ctx context.Context, binary, username, socketPath string) error {
	account, err := user.Lookup(username)
	if err != nil {
		return fmt.Errorf("resolving unprivileged user %q: %w", username, err)
	}
	uid, err := strconv.ParseUint(account.Uid, 10, 32)
	if err != nil {
		return fmt.Errorf("parsing uid %q for %q: %w", account.Uid, username, err)
	}
	gid, err := strconv.ParseUint(account.Gid, 10, 32)
	if err != nil {
		return fmt.Errorf("parsing gid %q for %q: %w", account.Gid, username, err)
	}

	command := exec.CommandContext(ctx, binary, "isolation", "--socket", socketPath)
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	command.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{
			Uid: uint32(uid),
			Gid: uint32(gid),
			// No supplementary groups: the probing identity must
			// have no relationship to the daemon's trusted group.
			Groups: []uint32{},
		},
	}

	if err := command.Run(); err != nil {
		return fmt.Errorf("isolation probe as %q failed: %w", username, err)
	}
	return nil
}
