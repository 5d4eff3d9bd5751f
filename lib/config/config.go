// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the verification harness.
type Config struct {
	// Daemon locates the daemon under verification.
	Daemon DaemonConfig `yaml:"daemon"`

	// Auth identifies the administrative principal.
	Auth AuthConfig `yaml:"auth"`

	// Store configures the harness-side credential store.
	Store StoreConfig `yaml:"store"`

	// Scenario names the hosts and identities the scenario uses.
	Scenario ScenarioConfig `yaml:"scenario"`

	// Timeouts bound network waits.
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// DaemonConfig locates the daemon's two request channels.
type DaemonConfig struct {
	// BaseURL is the daemon's HTTPS endpoint.
	// Default: https://localhost:2224
	BaseURL string `yaml:"base_url"`

	// SocketPath is the daemon's local Unix domain socket.
	// Default: /run/cordond/api.sock
	SocketPath string `yaml:"socket_path"`
}

// AuthConfig identifies the administrative principal the scenario
// authenticates as.
type AuthConfig struct {
	// Username is the daemon account. Default: clusteradm
	Username string `yaml:"username"`

	// PasswordFile is a path to a file containing the password, or
	// "-" to prompt interactively.
	PasswordFile string `yaml:"password_file"`

	// Token is a pre-known administrative token. When set, the
	// scenario seeds the credential store with it instead of
	// performing a password exchange in step one.
	Token string `yaml:"token"`
}

// StoreConfig configures the credential store file.
type StoreConfig struct {
	// Path is the known-hosts file location.
	// Default: ${HOME}/.config/cordon-verify/known-hosts.json
	Path string `yaml:"path"`
}

// ScenarioConfig names the identities the scenario run uses.
type ScenarioConfig struct {
	// PrimaryHost is the interactively authenticated node.
	// Default: localhost
	PrimaryHost string `yaml:"primary_host"`

	// PrimaryAddr overrides the primary host's network address.
	PrimaryAddr string `yaml:"primary_addr"`

	// SecondaryHost is the node enrolled via the pre-generated token
	// path. Default: custom-node-name
	SecondaryHost string `yaml:"secondary_host"`

	// SecondaryAddr overrides the secondary host's network address.
	// Default: localhost (the token path enrolls an alias of the
	// local node under a distinct name).
	SecondaryAddr string `yaml:"secondary_addr"`

	// IsolationUser is the unprivileged account the isolation check
	// re-executes under. Default: nobody
	IsolationUser string `yaml:"isolation_user"`

	// TokenDir is where generated token files are written.
	// Default: ${HOME}/.config/cordon-verify/tokens
	TokenDir string `yaml:"token_dir"`
}

// TimeoutConfig bounds network waits. Values are Go duration strings.
type TimeoutConfig struct {
	// Request bounds each network round trip. Default: 30s
	Request string `yaml:"request"`
}

// RequestTimeout parses the request timeout. Call Validate first;
// after a successful Validate this cannot fail.
func (c *Config) RequestTimeout() time.Duration {
	parsed, err := time.ParseDuration(c.Timeouts.Request)
	if err != nil {
		return 30 * time.Second
	}
	return parsed
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	configRoot := filepath.Join(homeDir, ".config", "cordon-verify")

	return &Config{
		Daemon: DaemonConfig{
			BaseURL:    "https://localhost:2224",
			SocketPath: "/run/cordond/api.sock",
		},
		Auth: AuthConfig{
			Username:     "clusteradm",
			PasswordFile: "-",
		},
		Store: StoreConfig{
			Path: filepath.Join(configRoot, "known-hosts.json"),
		},
		Scenario: ScenarioConfig{
			PrimaryHost:   "localhost",
			SecondaryHost: "custom-node-name",
			SecondaryAddr: "localhost",
			IsolationUser: "nobody",
			TokenDir:      filepath.Join(configRoot, "tokens"),
		},
		Timeouts: TimeoutConfig{
			Request: "30s",
		},
	}
}

// Load loads configuration from the CORDON_VERIFY_CONFIG environment
// variable. If the variable is unset, the defaults are returned — a
// fresh install is verifiable without writing a config file first.
func Load() (*Config, error) {
	configPath := os.Getenv("CORDON_VERIFY_CONFIG")
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults. Environment variables do not override config values;
// the only expansion performed is ${HOME} and similar path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Daemon.SocketPath = expandVars(c.Daemon.SocketPath, vars)
	c.Auth.PasswordFile = expandVars(c.Auth.PasswordFile, vars)
	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Scenario.TokenDir = expandVars(c.Scenario.TokenDir, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Daemon.BaseURL == "" {
		errs = append(errs, fmt.Errorf("daemon.base_url is required"))
	}
	if c.Daemon.SocketPath == "" {
		errs = append(errs, fmt.Errorf("daemon.socket_path is required"))
	}
	if c.Auth.Username == "" {
		errs = append(errs, fmt.Errorf("auth.username is required"))
	}
	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}
	if c.Scenario.PrimaryHost == "" {
		errs = append(errs, fmt.Errorf("scenario.primary_host is required"))
	}
	if c.Scenario.SecondaryHost == "" {
		errs = append(errs, fmt.Errorf("scenario.secondary_host is required"))
	}
	if c.Scenario.SecondaryHost == c.Scenario.PrimaryHost {
		errs = append(errs, fmt.Errorf("scenario.secondary_host must differ from scenario.primary_host"))
	}
	if _, err := time.ParseDuration(c.Timeouts.Request); err != nil {
		errs = append(errs, fmt.Errorf("timeouts.request: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
