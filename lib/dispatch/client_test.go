// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cordon-foundation/cordon-verify/lib/dispatch"
	"github.com/cordon-foundation/cordon-verify/lib/mockdaemon"
	"github.com/cordon-foundation/cordon-verify/lib/testutil"
)

// startDaemon runs a mock daemon for the duration of the test and
// returns a client bound to it.
func startDaemon(t *testing.T) (*mockdaemon.Daemon, *dispatch.Client) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	socketPath := filepath.Join(testutil.SocketDir(t), "api.sock")

	daemon, err := mockdaemon.New(mockdaemon.Config{
		SocketPath: socketPath,
		Accounts:   map[string]string{"clusteradm": "hunter2"},
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("mockdaemon.New: %v", err)
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

	client, err := dispatch.NewClient(dispatch.Config{
		BaseURL:    daemon.BaseURL(),
		SocketPath: daemon.SocketPath(),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("dispatch.NewClient: %v", err)
	}
	return daemon, client
}

// adminToken authenticates the admin account and returns the issued
// token as a cookie credential.
func adminToken(t *testing.T, client *dispatch.Client) dispatch.TokenCookie {
	t.Helper()
	token, err := client.Authenticate(context.Background(), "clusteradm", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	return dispatch.TokenCookie(token)
}

func TestAuthenticateIssuesToken(t *testing.T) {
	_, client := startDaemon(t)

	token, err := client.Authenticate(context.Background(), "clusteradm", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if token == "" {
		t.Fatal("issued token is empty")
	}

	// Re-authentication must return the same token: issuing a second
	// credential never invalidates the first.
	again, err := client.Authenticate(context.Background(), "clusteradm", "hunter2")
	if err != nil {
		t.Fatalf("second Authenticate: %v", err)
	}
	if again != token {
		t.Errorf("re-authentication issued a different token: %q != %q", again, token)
	}
}

func TestAuthenticateRefused(t *testing.T) {
	_, client := startDaemon(t)

	for _, test := range []struct {
		name     string
		username string
		password string
	}{
		{"bad password", "clusteradm", "wrong"},
		{"unknown account", "nobody", "hunter2"},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := client.Authenticate(context.Background(), test.username, test.password)
			if !errors.Is(err, dispatch.ErrAuthenticationRefused) {
				t.Fatalf("got %v, want ErrAuthenticationRefused", err)
			}
		})
	}
}

func TestCallV0Success(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	outcome, err := client.CallV0(context.Background(), token, "cluster_status_plaintext", nil)
	if err != nil {
		t.Fatalf("CallV0: %v", err)
	}
	if outcome.Status != "success" {
		t.Errorf("status = %q, want success", outcome.Status)
	}
	var data struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(outcome.Data, &data); err != nil {
		t.Fatalf("decoding data: %v", err)
	}
	if data.Text == "" {
		t.Error("status text is empty")
	}
}

func TestCallV0IntermediateStatusIsNotAnError(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	// The legacy surface signals failure with status "exception" and
	// nothing else. "in_progress" passes.
	outcome, err := client.CallV0(context.Background(), token, "cluster_start", nil)
	if err != nil {
		t.Fatalf("CallV0: %v", err)
	}
	if outcome.Status != "in_progress" {
		t.Errorf("status = %q, want in_progress", outcome.Status)
	}
}

func TestCallV0Exception(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	outcome, err := client.CallV0(context.Background(), token, "no_such_operation", nil)
	var contractErr *dispatch.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("got %v, want a ContractError", err)
	}
	if contractErr.Generation != dispatch.GenerationV0 {
		t.Errorf("generation = %s, want v0", contractErr.Generation)
	}
	if outcome == nil || outcome.Status != "exception" {
		t.Errorf("outcome = %+v, want status exception", outcome)
	}
}

func TestCallV0RejectsBadToken(t *testing.T) {
	_, client := startDaemon(t)

	_, err := client.CallV0(context.Background(), dispatch.TokenCookie("forged"), "cluster_status_plaintext", nil)
	var contractErr *dispatch.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("got %v, want a ContractError", err)
	}
	if contractErr.Outcome.Status != "exception" {
		t.Errorf("status = %q, want exception", contractErr.Outcome.Status)
	}
}

func TestCallV1TransportEquivalence(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	https, err := client.CallV1(context.Background(), dispatch.TransportHTTPS, token,
		"resource-agent-get-agents-list", "v1", nil)
	if err != nil {
		t.Fatalf("CallV1 over https: %v", err)
	}

	socket, err := client.CallV1(context.Background(), dispatch.TransportSocket, token,
		"resource-agent-get-agents-list", "v1", nil)
	if err != nil {
		t.Fatalf("CallV1 over socket: %v", err)
	}

	if https.Status != socket.Status {
		t.Errorf("status differs: https %q, socket %q", https.Status, socket.Status)
	}
	var httpsData, socketData any
	if err := json.Unmarshal(https.Data, &httpsData); err != nil {
		t.Fatalf("decoding https data: %v", err)
	}
	if err := json.Unmarshal(socket.Data, &socketData); err != nil {
		t.Fatalf("decoding socket data: %v", err)
	}
	if diff := cmp.Diff(httpsData, socketData); diff != "" {
		t.Errorf("outcome data differs between transports (-https +socket):\n%s", diff)
	}
}

func TestCallV1SocketImplicitPeerTrust(t *testing.T) {
	_, client := startDaemon(t)

	// The daemon trusts the test process's own uid on the socket, so
	// no token is needed there.
	outcome, err := client.CallV1(context.Background(), dispatch.TransportSocket,
		dispatch.ImplicitPeerTrust{}, "resource-agent-get-agents-list", "v1", nil)
	if err != nil {
		t.Fatalf("CallV1: %v", err)
	}
	if outcome.Status != "success" {
		t.Errorf("status = %q, want success", outcome.Status)
	}
}

func TestCallV1HTTPSRejectsImplicitTrust(t *testing.T) {
	_, client := startDaemon(t)

	// Implicit peer trust has no meaning where no peer identity
	// exists; the client refuses before touching the network.
	_, err := client.CallV1(context.Background(), dispatch.TransportHTTPS,
		dispatch.ImplicitPeerTrust{}, "resource-agent-get-agents-list", "v1", nil)
	if err == nil {
		t.Fatal("https call with implicit trust succeeded, want refusal")
	}
}

func TestCallV1UnknownVersion(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	_, err := client.CallV1(context.Background(), dispatch.TransportHTTPS, token,
		"resource-agent-get-agents-list", "v9", nil)
	var contractErr *dispatch.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("got %v, want a ContractError", err)
	}
	if contractErr.Generation != dispatch.GenerationV1 {
		t.Errorf("generation = %s, want v1", contractErr.Generation)
	}
}

func TestRunTaskSync(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	task, err := client.RunTask(context.Background(), dispatch.TransportHTTPS, token,
		"resource_agent.get_agent_metadata", map[string]any{"agent_name": "ocf:heartbeat:Dummy"})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	if !task.Finished() || task.FinishType != "success" {
		t.Fatalf("task state = %s/%s, want finished/success", task.State, task.FinishType)
	}
	var metadata struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(task.Result, &metadata); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if metadata.Name != "ocf:heartbeat:Dummy" {
		t.Errorf("metadata name = %q, want ocf:heartbeat:Dummy", metadata.Name)
	}
}

func TestCreateTaskAndPoll(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	created, err := client.CreateTask(context.Background(), dispatch.TransportHTTPS, token,
		"resource_agent.list_agents", nil)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.TaskIdent == "" {
		t.Fatal("created task has no identifier")
	}

	deadline := time.Now().Add(5 * time.Second)
	var final *dispatch.TaskState
	for {
		final, err = client.TaskResult(context.Background(), dispatch.TransportHTTPS, token, created.TaskIdent)
		if err != nil {
			t.Fatalf("TaskResult: %v", err)
		}
		if final.Finished() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %s did not finish, state %s", created.TaskIdent, final.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if final.FinishType != "success" {
		t.Fatalf("finish_type = %q, want success", final.FinishType)
	}
}

// TestSyncAsyncConvergence checks that the same command with the same
// parameters produces the same result payload in both delivery modes.
func TestSyncAsyncConvergence(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	params := map[string]any{"agent_name": "ocf:heartbeat:IPaddr2"}

	sync, err := client.RunTask(context.Background(), dispatch.TransportHTTPS, token,
		"resource_agent.get_agent_metadata", params)
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	created, err := client.CreateTask(context.Background(), dispatch.TransportHTTPS, token,
		"resource_agent.get_agent_metadata", params)
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	var async *dispatch.TaskState
	for {
		async, err = client.TaskResult(context.Background(), dispatch.TransportHTTPS, token, created.TaskIdent)
		if err != nil {
			t.Fatalf("TaskResult: %v", err)
		}
		if async.Finished() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %s did not finish", created.TaskIdent)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var syncResult, asyncResult any
	if err := json.Unmarshal(sync.Result, &syncResult); err != nil {
		t.Fatalf("decoding sync result: %v", err)
	}
	if err := json.Unmarshal(async.Result, &asyncResult); err != nil {
		t.Fatalf("decoding async result: %v", err)
	}
	if diff := cmp.Diff(syncResult, asyncResult); diff != "" {
		t.Errorf("results diverge between delivery modes (-sync +async):\n%s", diff)
	}
}

func TestRunTaskUnknownCommandFails(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	task, err := client.RunTask(context.Background(), dispatch.TransportHTTPS, token,
		"no.such.command", nil)
	var contractErr *dispatch.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("got %v, want a ContractError", err)
	}
	if contractErr.Generation != dispatch.GenerationV2 {
		t.Errorf("generation = %s, want v2", contractErr.Generation)
	}
	if task == nil || task.FinishType != "fail" {
		t.Errorf("task = %+v, want finish_type fail", task)
	}
}

func TestTaskResultUnknownIdent(t *testing.T) {
	_, client := startDaemon(t)
	token := adminToken(t, client)

	_, err := client.TaskResult(context.Background(), dispatch.TransportHTTPS, token, "task-999")
	var contractErr *dispatch.ContractError
	if !errors.As(err, &contractErr) {
		t.Fatalf("got %v, want a ContractError", err)
	}
}

func TestConnectionFailureIsTransportError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := dispatch.NewClient(dispatch.Config{
		BaseURL:        "https://127.0.0.1:1", // nothing listens here
		SocketPath:     "/nonexistent/api.sock",
		RequestTimeout: time.Second,
		Logger:         logger,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.CallV0(context.Background(), dispatch.TokenCookie("t"), "cluster_status_plaintext", nil)
	var transportErr *dispatch.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("got %v, want a TransportError", err)
	}
	if transportErr.Transport != dispatch.TransportHTTPS {
		t.Errorf("transport = %s, want https", transportErr.Transport)
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := dispatch.NewClient(dispatch.Config{
		BaseURL: "ftp://example.com",
		Logger:  logger,
	})
	if err == nil {
		t.Fatal("NewClient accepted an ftp base URL")
	}
}
