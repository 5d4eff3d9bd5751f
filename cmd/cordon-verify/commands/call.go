// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/cordon-foundation/cordon-verify/cmd/cordon-verify/cli"
	"github.com/cordon-foundation/cordon-verify/lib/dispatch"
)

// callCommand builds the "call" subcommand: a single dispatch against
// the daemon, any generation, either transport. This is the debugging
// tool for poking at one endpoint when a scenario step fails.
func callCommand() *cli.Command {
	var (
		configPath string
		generation string
		transport  string
		apiVersion string
		async      bool
	)

	return &cli.Command{
		Name:    "call",
		Summary: "Dispatch a single API call",
		Description: `Dispatch one call against the configured daemon and print the raw
response to stdout. The operation name is the first positional
argument; an optional second argument is the JSON parameter document
(defaults to {}).

Over HTTPS the stored token for the primary host authenticates the
call. Over the socket the call relies on implicit peer trust, so it
needs no stored credential.`,
		Usage: "cordon-verify call [flags] <operation> [params-json]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("call", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "path to the configuration file")
			flags.StringVar(&generation, "generation", "v1", "API generation: v0, v1, or v2")
			flags.StringVar(&transport, "transport", "https", "transport: https or socket")
			flags.StringVar(&apiVersion, "api-version", "v1", "operation version for v1 calls")
			flags.BoolVar(&async, "async", false, "submit v2 tasks asynchronously instead of waiting")
			return flags
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("call requires an operation and optionally a JSON parameter document")
			}
			operation := args[0]

			var params json.RawMessage = []byte("{}")
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("parameter document is not valid JSON")
				}
				params = json.RawMessage(args[1])
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			client, err := buildClient(cfg, logger)
			if err != nil {
				return err
			}

			var chosen dispatch.Transport
			var auth dispatch.AuthContext
			switch transport {
			case "https":
				chosen = dispatch.TransportHTTPS
				store, err := openStore(cfg)
				if err != nil {
					return err
				}
				token := store.Token(cfg.Scenario.PrimaryHost)
				if token == "" {
					return fmt.Errorf("no stored token for %q: run 'cordon-verify auth' first", cfg.Scenario.PrimaryHost)
				}
				auth = dispatch.TokenCookie(token)
			case "socket":
				chosen = dispatch.TransportSocket
				auth = dispatch.ImplicitPeerTrust{}
			default:
				return fmt.Errorf("unknown transport %q: use https or socket", transport)
			}

			switch generation {
			case "v0":
				if chosen != dispatch.TransportHTTPS {
					return fmt.Errorf("the v0 generation is HTTPS-only")
				}
				outcome, err := client.CallV0(ctx, auth, operation, params)
				if outcome != nil {
					os.Stdout.Write(outcome.Raw)
					fmt.Println()
				}
				return err
			case "v1":
				outcome, err := client.CallV1(ctx, chosen, auth, operation, apiVersion, params)
				if outcome != nil {
					os.Stdout.Write(outcome.Raw)
					fmt.Println()
				}
				return err
			case "v2":
				var task *dispatch.TaskState
				if async {
					task, err = client.CreateTask(ctx, chosen, auth, operation, params)
				} else {
					task, err = client.RunTask(ctx, chosen, auth, operation, params)
				}
				if task != nil {
					encoded, marshalErr := json.MarshalIndent(task, "", "  ")
					if marshalErr == nil {
						os.Stdout.Write(encoded)
						fmt.Println()
					}
				}
				return err
			default:
				return fmt.Errorf("unknown generation %q: use v0, v1, or v2", generation)
			}
		},
	}
}
