// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// The cordond-mock binary runs the in-process mock daemon as a
// standalone server, for exercising the verification harness without
// a real cluster-configuration daemon. It serves the same API surface
// on an HTTPS listener and a Unix socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/cordon-foundation/cordon-verify/lib/mockdaemon"
	"github.com/cordon-foundation/cordon-verify/lib/process"
	"github.com/cordon-foundation/cordon-verify/lib/version"
)

func main() {
	socketPath := flag.String("socket", "/tmp/cordond-mock.sock", "Unix socket path")
	listenAddress := flag.String("listen", "127.0.0.1:2224", "HTTPS listen address")
	accountsFlag := flag.String("accounts", "clusteradm:insecure", "comma-separated user:password pairs")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		version.Print("cordond-mock")
		return
	}

	accounts, err := parseAccounts(*accountsFlag)
	if err != nil {
		process.Fatal(err)
	}

	var handler slog.Handler
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	logger := slog.New(handler)

	daemon, err := mockdaemon.New(mockdaemon.Config{
		SocketPath:    *socketPath,
		ListenAddress: *listenAddress,
		Accounts:      accounts,
		Logger:        logger,
	})
	if err != nil {
		process.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := daemon.Serve(ctx); err != nil {
		process.Fatal(err)
	}
}

// parseAccounts splits "user:password,user:password" into the account
// map the daemon hashes at construction.
func parseAccounts(raw string) (map[string]string, error) {
	accounts := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		username, password, found := strings.Cut(pair, ":")
		if !found || username == "" || password == "" {
			return nil, fmt.Errorf("malformed account %q: want user:password", pair)
		}
		accounts[username] = password
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no accounts configured")
	}
	return accounts, nil
}
