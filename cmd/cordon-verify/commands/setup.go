// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"log/slog"

	"github.com/cordon-foundation/cordon-verify/lib/config"
	"github.com/cordon-foundation/cordon-verify/lib/credstore"
	"github.com/cordon-foundation/cordon-verify/lib/dispatch"
)

// loadConfig resolves the effective configuration: an explicit
// --config path wins, otherwise the CORDON_VERIFY_CONFIG environment
// variable, otherwise built-in defaults. The result is validated.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildClient constructs the dispatcher from the daemon section of the
// configuration.
func buildClient(cfg *config.Config, logger *slog.Logger) (*dispatch.Client, error) {
	return dispatch.NewClient(dispatch.Config{
		BaseURL:        cfg.Daemon.BaseURL,
		SocketPath:     cfg.Daemon.SocketPath,
		RequestTimeout: cfg.RequestTimeout(),
		Logger:         logger,
	})
}

// openStore loads the credential store from the configured path. A
// missing store file yields an empty store, so first runs need no
// setup.
func openStore(cfg *config.Config) (*credstore.Store, error) {
	return credstore.Load(cfg.Store.Path)
}
