// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/cordon-foundation/cordon-verify/cmd/cordon-verify/cli"
	"github.com/cordon-foundation/cordon-verify/lib/isolation"
)

// isolationCommand builds the "isolation" subcommand. With --as-user
// it re-executes itself under the named unprivileged account; without
// it, it runs the probe directly under the current uid. The scenario
// runner invokes the direct form through the re-executing form.
func isolationCommand() *cli.Command {
	var (
		configPath string
		socketPath string
		asUser     string
	)

	return &cli.Command{
		Name:    "isolation",
		Summary: "Probe the daemon socket for access isolation",
		Description: `Attempt to connect to the daemon's Unix socket and verify the attempt
is refused at the transport layer. A successful connection means the
socket is reachable by principals it should exclude, and the probe
fails.

With --as-user, re-executes this probe under the named account's uid
and gid so the check runs with that account's real permissions. That
form requires the privileges to switch credentials (typically root).`,
		Usage: "cordon-verify isolation [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("isolation", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "path to the configuration file")
			flags.StringVar(&socketPath, "socket", "", "daemon socket path (defaults to the configured one)")
			flags.StringVar(&asUser, "as-user", "", "re-execute the probe under this account")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("isolation takes no positional arguments")
			}

			if socketPath == "" {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				socketPath = cfg.Daemon.SocketPath
			}

			if asUser != "" {
				executable, err := os.Executable()
				if err != nil {
					return fmt.Errorf("resolving own executable: %w", err)
				}
				if err := isolation.RunAsUser(ctx, executable, asUser, socketPath); err != nil {
					return err
				}
				fmt.Printf("isolation check passed for user %q on %s\n", asUser, socketPath)
				return nil
			}

			checker := &isolation.Checker{
				SocketPath: socketPath,
				Logger:     logger,
			}
			if err := checker.Check(ctx); err != nil {
				return err
			}
			fmt.Printf("isolation check passed on %s\n", socketPath)
			return nil
		},
	}
}
