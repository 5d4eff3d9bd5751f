// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package mockdaemon

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cordon-foundation/cordon-verify/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHostStateMachine(t *testing.T) {
	daemon, err := New(Config{
		SocketPath: "/tmp/unused.sock",
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := daemon.registerHost("node2", "192.0.2.7", "tok-a"); err != nil {
		t.Fatalf("registerHost: %v", err)
	}

	// Pending hosts refuse status queries and their tokens do not
	// authenticate API calls.
	if _, err := daemon.hostStatus("node2"); err == nil {
		t.Error("pending host answered a status query")
	}
	if daemon.tokenValid("tok-a") {
		t.Error("pending host token authenticated")
	}

	// Re-registering with the same token is a no-op; a different
	// token is a conflict.
	if err := daemon.registerHost("node2", "192.0.2.7", "tok-a"); err != nil {
		t.Errorf("re-register with same token: %v", err)
	}
	if err := daemon.registerHost("node2", "192.0.2.7", "tok-b"); err == nil {
		t.Error("re-register with different token succeeded")
	}

	// Acceptance requires the matching token.
	if err := daemon.acceptHostToken("node2", "tok-b"); err == nil {
		t.Error("acceptance with mismatched token succeeded")
	}
	if err := daemon.acceptHostToken("node2", "tok-a"); err != nil {
		t.Fatalf("acceptHostToken: %v", err)
	}

	status, err := daemon.hostStatus("node2")
	if err != nil {
		t.Fatalf("hostStatus: %v", err)
	}
	if status["state"] != "Online" {
		t.Errorf("state = %v, want Online", status["state"])
	}
	if !daemon.tokenValid("tok-a") {
		t.Error("trusted host token did not authenticate")
	}

	// Accepting again with the matching token re-confirms.
	if err := daemon.acceptHostToken("node2", "tok-a"); err != nil {
		t.Errorf("re-acceptance: %v", err)
	}
}

func TestAcceptUnknownHost(t *testing.T) {
	daemon, err := New(Config{SocketPath: "/tmp/unused.sock", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := daemon.acceptHostToken("ghost", "tok"); err == nil {
		t.Error("acceptance of unregistered host succeeded")
	}
}

func TestIssueTokenStable(t *testing.T) {
	daemon, err := New(Config{
		SocketPath: "/tmp/unused.sock",
		Accounts:   map[string]string{"clusteradm": "pw"},
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := daemon.issueToken("clusteradm")
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	second, err := daemon.issueToken("clusteradm")
	if err != nil {
		t.Fatalf("second issueToken: %v", err)
	}
	if first != second {
		t.Errorf("second issuance minted a new token: %q != %q", first, second)
	}
}

func TestSeedToken(t *testing.T) {
	daemon, err := New(Config{
		SocketPath: "/tmp/unused.sock",
		Accounts:   map[string]string{"clusteradm": "pw"},
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := daemon.SeedToken("clusteradm", "preset"); err != nil {
		t.Fatalf("SeedToken: %v", err)
	}
	if !daemon.tokenValid("preset") {
		t.Error("seeded token did not authenticate")
	}
	if err := daemon.SeedToken("nobody", "x"); err == nil {
		t.Error("seeding an unknown account succeeded")
	}
}

func TestExecuteTaskLifecycle(t *testing.T) {
	daemon, err := New(Config{SocketPath: "/tmp/unused.sock", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	task := &taskRecord{
		ident:       "task-1",
		commandName: "resource_agent.list_agents",
		state:       "created",
	}
	daemon.executeTask(task)

	if task.state != "finished" || task.finishType != "success" {
		t.Fatalf("task ended %s/%s, want finished/success", task.state, task.finishType)
	}

	unknown := &taskRecord{
		ident:       "task-2",
		commandName: "no.such.command",
		state:       "created",
	}
	daemon.executeTask(unknown)
	if unknown.finishType != "fail" {
		t.Errorf("unknown command finished %q, want fail", unknown.finishType)
	}
}

func TestAgentMetadataCommand(t *testing.T) {
	result, err := commandAgentMetadata(json.RawMessage(`{"agent_name":"ocf:heartbeat:Dummy"}`))
	if err != nil {
		t.Fatalf("commandAgentMetadata: %v", err)
	}
	metadata, ok := result.(map[string]any)
	if !ok || metadata["name"] != "ocf:heartbeat:Dummy" {
		t.Errorf("metadata = %v", result)
	}

	if _, err := commandAgentMetadata(json.RawMessage(`{"agent_name":"ocf:nope"}`)); err == nil {
		t.Error("unknown agent succeeded")
	}
}

func TestClusterSetupCommandValidation(t *testing.T) {
	if _, err := commandClusterSetup(json.RawMessage(`{"nodes":["a"]}`)); err == nil {
		t.Error("setup without cluster_name succeeded")
	}
	if _, err := commandClusterSetup(json.RawMessage(`{"cluster_name":"c"}`)); err == nil {
		t.Error("setup without nodes succeeded")
	}
	if _, err := commandClusterSetup(json.RawMessage(`{"cluster_name":"c","nodes":["a"]}`)); err != nil {
		t.Errorf("valid setup failed: %v", err)
	}
}

// TestSocketRejectsUntrustedPeer runs a daemon that trusts no real
// uid and checks that a cookie-less socket request is refused.
func TestSocketRejectsUntrustedPeer(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "api.sock")
	daemon, err := New(Config{
		SocketPath:      socketPath,
		TrustedPeerUIDs: []uint32{4294967294}, // matches no real uid
		Logger:          discardLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemon.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, 5*time.Second, "daemon exit"); err != nil {
			t.Errorf("daemon serve: %v", err)
		}
	})
	testutil.RequireClosed(t, daemon.Ready(), 5*time.Second, "daemon ready")

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				dialer := net.Dialer{}
				return dialer.DialContext(ctx, "unix", socketPath)
			},
		},
	}
	response, err := client.Post("http://cordond/api/v1/resource-agent-get-agents-list/v1",
		"application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("socket request: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", response.StatusCode)
	}
}

// TestSocketFileCleanup checks the socket file is removed when the
// daemon shuts down, and that a stale file is replaced on startup.
func TestSocketFileCleanup(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "api.sock")
	if err := os.WriteFile(socketPath, nil, 0600); err != nil {
		t.Fatalf("planting stale socket: %v", err)
	}

	daemon, err := New(Config{SocketPath: socketPath, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemon.Serve(ctx)
	}()
	testutil.RequireClosed(t, daemon.Ready(), 5*time.Second, "daemon ready")

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "daemon exit"); err != nil {
		t.Fatalf("daemon serve: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Errorf("socket file still present after shutdown: %v", err)
	}
}
