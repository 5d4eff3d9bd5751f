// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("default request timeout = %v, want 30s", cfg.RequestTimeout())
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verify.yaml")
	content := `
daemon:
  base_url: https://node1.example.com:2224
auth:
  username: admin2
timeouts:
  request: 5s
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Daemon.BaseURL != "https://node1.example.com:2224" {
		t.Errorf("base_url = %q", cfg.Daemon.BaseURL)
	}
	if cfg.Auth.Username != "admin2" {
		t.Errorf("username = %q", cfg.Auth.Username)
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Errorf("request timeout = %v, want 5s", cfg.RequestTimeout())
	}

	// Fields the file does not mention keep their defaults.
	if cfg.Daemon.SocketPath != "/run/cordond/api.sock" {
		t.Errorf("socket_path = %q, want default", cfg.Daemon.SocketPath)
	}
	if cfg.Scenario.SecondaryHost != "custom-node-name" {
		t.Errorf("secondary_host = %q, want default", cfg.Scenario.SecondaryHost)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile succeeded on a missing file")
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("daemon: [not a mapping"), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile accepted malformed YAML")
	}
}

func TestLoadUsesEnvironmentVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verify.yaml")
	content := "auth:\n  username: from-env-config\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("CORDON_VERIFY_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Username != "from-env-config" {
		t.Errorf("username = %q", cfg.Auth.Username)
	}
}

func TestLoadWithoutEnvironmentReturnsDefaults(t *testing.T) {
	t.Setenv("CORDON_VERIFY_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Username != "clusteradm" {
		t.Errorf("username = %q, want clusteradm", cfg.Auth.Username)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("CORDON_TEST_DIR", "/srv/cordon")

	for _, test := range []struct {
		input string
		want  string
	}{
		{"${CORDON_TEST_DIR}/api.sock", "/srv/cordon/api.sock"},
		{"${CORDON_TEST_UNSET:-/fallback}/api.sock", "/fallback/api.sock"},
		{"/literal/path", "/literal/path"},
	} {
		if got := expandVars(test.input, nil); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidateErrors(t *testing.T) {
	cfg := Default()
	cfg.Daemon.BaseURL = ""
	cfg.Scenario.SecondaryHost = cfg.Scenario.PrimaryHost
	cfg.Timeouts.Request = "soon"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed an invalid configuration")
	}
	for _, want := range []string{
		"daemon.base_url",
		"secondary_host must differ",
		"timeouts.request",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
