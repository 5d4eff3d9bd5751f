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
	"github.com/cordon-foundation/cordon-verify/lib/enroll"
	"github.com/cordon-foundation/cordon-verify/lib/isolation"
	"github.com/cordon-foundation/cordon-verify/lib/scenario"
)

// runCommand builds the "run" subcommand: the full verification
// scenario, end to end, fail-fast.
func runCommand() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "run",
		Summary: "Run the full verification scenario",
		Description: `Run the complete verification scenario against the configured daemon:
credential establishment, interactive authentication with an
idempotency check, optional cluster formation, one call per API
generation, token-file enrollment of a second host, transport
equivalence, and the access-isolation check.

The report is written to stdout, one line per step. The exit code is
zero exactly when no step failed; skipped steps do not fail the run.`,
		Usage: "cordon-verify run [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "path to the configuration file")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("run takes no positional arguments")
			}
			return runScenario(ctx, configPath, logger)
		},
	}
}

func runScenario(ctx context.Context, configPath string, logger *slog.Logger) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	client, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	// A preconfigured token skips the interactive password exchange;
	// otherwise the password is resolved up front so the scenario
	// never blocks on a prompt mid-run.
	password := ""
	if cfg.Auth.Token == "" {
		password, err = cli.ReadPassword(cfg.Auth.PasswordFile, cfg.Auth.Username)
		if err != nil {
			return err
		}
	}

	// The isolation step re-executes this binary's isolation
	// subcommand under the unprivileged principal, so the probe runs
	// with that principal's real filesystem permissions.
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving own executable: %w", err)
	}

	runner := &scenario.Runner{
		Client: client,
		Store:  store,
		Primary: enroll.Host{
			Name: cfg.Scenario.PrimaryHost,
			Addr: cfg.Scenario.PrimaryAddr,
		},
		Secondary: enroll.Host{
			Name: cfg.Scenario.SecondaryHost,
			Addr: cfg.Scenario.SecondaryAddr,
		},
		Username:   cfg.Auth.Username,
		Password:   password,
		AdminToken: cfg.Auth.Token,
		TokenDir:   cfg.Scenario.TokenDir,
		IsolationCheck: func(ctx context.Context) error {
			return isolation.RunAsUser(ctx, executable, cfg.Scenario.IsolationUser, cfg.Daemon.SocketPath)
		},
		Logger: logger,
	}

	report := runner.Run(ctx)
	report.Write(os.Stdout)
	if !report.OK() {
		return &cli.ExitError{Code: 1}
	}
	return nil
}
