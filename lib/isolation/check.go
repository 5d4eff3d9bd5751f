// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package isolation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// dialTimeout bounds the connection attempt. A refusal arrives
// immediately; anything slower than this is an environment problem,
// not a verdict.
const dialTimeout = 5 * time.Second

// DialFunc opens a connection to the socket. The default uses
// net.Dialer; tests inject alternatives to exercise the verdict
// classification.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// AccessError reports that the socket was reachable when it should
// not have been: the unprivileged connection attempt succeeded.
type AccessError struct {
	// SocketPath is the probed socket.
	SocketPath string

	// Owner and Mode describe the socket file at probe time, for
	// diagnosing what made it reachable.
	Owner uint32
	Mode  uint32
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("socket %s accepted an unprivileged connection (owner uid %d, mode %04o)",
		e.SocketPath, e.Owner, e.Mode)
}

// Checker probes one daemon socket.
type Checker struct {
	// SocketPath is the daemon socket to probe. Required.
	SocketPath string

	// Dial overrides the connection function. Nil means a plain
	// net.Dialer.
	Dial DialFunc

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// Check attempts to connect to the socket and classifies the result:
//
//   - permission denied (EACCES/EPERM) at connect — the expected
//     refusal; the check passes and Check returns nil.
//   - connection succeeds — the socket is open to this principal;
//     Check returns an [*AccessError].
//   - any other failure (missing socket, refused by a dead listener,
//     timeout) — an environment fault, returned as an ordinary error
//     distinct from both verdicts.
func (c *Checker) Check(ctx context.Context) error {
	owner, mode := c.statSocket()

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dial := c.Dial
	if dial == nil {
		dialer := net.Dialer{}
		dial = dialer.DialContext
	}

	conn, err := dial(ctx, "unix", c.SocketPath)
	if err == nil {
		conn.Close()
		return &AccessError{SocketPath: c.SocketPath, Owner: owner, Mode: mode}
	}

	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
		c.Logger.Info("socket connection refused as expected",
			"socket", c.SocketPath,
			"error", err,
		)
		return nil
	}

	return fmt.Errorf("probing socket %s: expected permission denial, got: %w", c.SocketPath, err)
}

// statSocket reads the socket file's owner and permission bits for
// diagnostics. Failures are ignored — the connect attempt is the
// verdict, the stat only enriches its report.
func (c *Checker) statSocket() (owner, mode uint32) {
	var stat unix.Stat_t
	if err := unix.Stat(c.SocketPath, &stat); err != nil {
		return 0, 0
	}
	return stat.Uid, uint32(stat.Mode & 0777)
}
