// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/cordon-foundation/cordon-verify/cmd/cordon-verify/cli"
	"github.com/cordon-foundation/cordon-verify/lib/enroll"
)

// authCommand builds the "auth" subcommand: a one-off interactive
// authentication that stores the issued token without running the
// rest of the scenario.
func authCommand() *cli.Command {
	var (
		configPath string
		username   string
	)

	return &cli.Command{
		Name:    "auth",
		Summary: "Authenticate against the daemon and store the issued token",
		Description: `Authenticate against the configured daemon with a username and
password, and persist the issued token to the credential store. Later
runs and direct calls pick the token up from the store.`,
		Usage: "cordon-verify auth [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("auth", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "path to the configuration file")
			flags.StringVar(&username, "username", "", "username (defaults to the configured one)")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("auth takes no positional arguments")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if username == "" {
				username = cfg.Auth.Username
			}

			client, err := buildClient(cfg, logger)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}

			password, err := cli.ReadPassword(cfg.Auth.PasswordFile, username)
			if err != nil {
				return err
			}

			flow := enroll.NewFlow(client, store, nil, logger)
			host := enroll.Host{
				Name: cfg.Scenario.PrimaryHost,
				Addr: cfg.Scenario.PrimaryAddr,
			}
			if _, err := flow.AuthPassword(ctx, host, username, password); err != nil {
				return err
			}

			fmt.Printf("token for %q stored in %s\n", host.Name, store.Path())
			return nil
		},
	}
}
