// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete cordon-verify CLI command
// tree: the full scenario runner plus the individual building blocks
// (authentication, direct dispatch, the isolation probe) exposed as
// standalone subcommands for debugging a daemon by hand.
package commands

import (
	"context"
	"log/slog"

	"github.com/cordon-foundation/cordon-verify/cmd/cordon-verify/cli"
	"github.com/cordon-foundation/cordon-verify/lib/version"
)

// Root builds and returns the complete cordon-verify command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "cordon-verify",
		Description: `cordon-verify: end-to-end verification harness for cordond.

Exercises a running cluster-configuration daemon across all three API
generations and both transports: interactive and token-file
authentication, legacy plaintext calls, versioned calls over HTTPS and
the local Unix socket, the task API in both delivery modes, and the
access-isolation check.`,
		Subcommands: []*cli.Command{
			runCommand(),
			authCommand(),
			callCommand(),
			isolationCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					version.Print("cordon-verify")
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Run the full verification scenario against the local daemon",
				Command:     "cordon-verify run",
			},
			{
				Description: "Run against a remote daemon with a config file",
				Command:     "cordon-verify run --config verify.yaml",
			},
			{
				Description: "Authenticate and store a token without running the scenario",
				Command:     "cordon-verify auth --username clusteradm",
			},
			{
				Description: "Dispatch a single versioned call over the socket",
				Command:     "cordon-verify call --generation v1 --transport socket resource-agent-get-agents-list",
			},
		},
	}
}
