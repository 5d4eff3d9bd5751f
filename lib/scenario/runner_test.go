// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package scenario_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cordon-foundation/cordon-verify/lib/credstore"
	"github.com/cordon-foundation/cordon-verify/lib/dispatch"
	"github.com/cordon-foundation/cordon-verify/lib/enroll"
	"github.com/cordon-foundation/cordon-verify/lib/mockdaemon"
	"github.com/cordon-foundation/cordon-verify/lib/scenario"
	"github.com/cordon-foundation/cordon-verify/lib/testutil"
)

// newRunner starts a mock daemon and builds a runner wired to it,
// with both injectable checks passing by default.
func newRunner(t *testing.T) *scenario.Runner {
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
	store, err := credstore.Load(filepath.Join(t.TempDir(), "known-hosts.json"))
	if err != nil {
		t.Fatalf("credstore.Load: %v", err)
	}

	return &scenario.Runner{
		Client:           client,
		Store:            store,
		Primary:          enroll.Host{Name: "localhost"},
		Secondary:        enroll.Host{Name: "node2", Addr: "127.0.0.1"},
		Username:         "clusteradm",
		Password:         "hunter2",
		TokenDir:         filepath.Join(t.TempDir(), "tokens"),
		FullClusterSetup: func() bool { return true },
		IsolationCheck:   func(context.Context) error { return nil },
		Logger:           logger,
	}
}

func stepStatus(t *testing.T, report *scenario.Report, name string) scenario.Status {
	t.Helper()
	for _, step := range report.Steps {
		if step.Name == name {
			return step.Status
		}
	}
	t.Fatalf("report has no step %q", name)
	return 0
}

func TestRunFullScenario(t *testing.T) {
	runner := newRunner(t)

	report := runner.Run(context.Background())
	if !report.OK() {
		var rendered strings.Builder
		report.Write(&rendered)
		t.Fatalf("scenario failed:\n%s", rendered.String())
	}
	if len(report.Steps) != 9 {
		t.Fatalf("executed %d steps, want 9", len(report.Steps))
	}
	for _, step := range report.Steps {
		if step.Status != scenario.Passed {
			t.Errorf("step %s: %s, want PASS", step.Name, step.Status)
		}
	}
}

func TestRunSkipsClusterSetup(t *testing.T) {
	runner := newRunner(t)
	runner.FullClusterSetup = func() bool { return false }

	report := runner.Run(context.Background())
	if !report.OK() {
		var rendered strings.Builder
		report.Write(&rendered)
		t.Fatalf("scenario failed:\n%s", rendered.String())
	}

	// The formation sub-step is skipped; everything around it still
	// runs and passes.
	if got := stepStatus(t, report, "cluster-setup"); got != scenario.Skipped {
		t.Errorf("cluster-setup: %s, want SKIP", got)
	}
	if got := stepStatus(t, report, "validate-v2"); got != scenario.Passed {
		t.Errorf("validate-v2: %s, want PASS", got)
	}
}

func TestRunFailFast(t *testing.T) {
	runner := newRunner(t)
	runner.Password = "wrong"

	report := runner.Run(context.Background())
	if report.OK() {
		t.Fatal("scenario passed with a bad password")
	}

	last := report.Steps[len(report.Steps)-1]
	if last.Name != "authenticate-primary" || last.Status != scenario.Failed {
		t.Fatalf("last step %s/%s, want authenticate-primary/FAIL", last.Name, last.Status)
	}
	// Nothing after the failure ran.
	if len(report.Steps) != 2 {
		t.Errorf("executed %d steps, want 2", len(report.Steps))
	}
}

func TestRunIsolationFailureFailsRun(t *testing.T) {
	runner := newRunner(t)
	runner.IsolationCheck = func(context.Context) error {
		return fmt.Errorf("socket accepted an unprivileged connection")
	}

	report := runner.Run(context.Background())
	if report.OK() {
		t.Fatal("scenario passed with a failing isolation check")
	}
	if got := stepStatus(t, report, "access-isolation"); got != scenario.Failed {
		t.Errorf("access-isolation: %s, want FAIL", got)
	}
}

func TestRunWithPreconfiguredToken(t *testing.T) {
	runner := newRunner(t)

	// Establish the token out of band, as an installer would, then
	// run without a password at all.
	token, err := runner.Client.Authenticate(context.Background(), "clusteradm", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	runner.Password = ""
	runner.AdminToken = token

	report := runner.Run(context.Background())
	if !report.OK() {
		var rendered strings.Builder
		report.Write(&rendered)
		t.Fatalf("scenario failed:\n%s", rendered.String())
	}
}

func TestRunWithoutCredentialFails(t *testing.T) {
	runner := newRunner(t)
	runner.Password = ""
	runner.AdminToken = ""

	report := runner.Run(context.Background())
	if report.OK() {
		t.Fatal("scenario passed with no credential configured")
	}
	if len(report.Steps) != 1 {
		t.Errorf("executed %d steps, want 1", len(report.Steps))
	}
}

func TestReportRendering(t *testing.T) {
	report := &scenario.Report{
		Steps: []scenario.StepResult{
			{Name: "one", Status: scenario.Passed, Detail: "held"},
			{Name: "two", Status: scenario.Skipped, Detail: "no init system"},
			{Name: "three", Status: scenario.Failed, Err: fmt.Errorf("boom")},
		},
	}

	var rendered strings.Builder
	report.Write(&rendered)
	out := rendered.String()

	for _, want := range []string{
		"PASS  one: held",
		"SKIP  two: no init system",
		"FAIL  three: boom",
		"1 passed, 1 failed, 1 skipped",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q:\n%s", want, out)
		}
	}
	if report.OK() {
		t.Error("report with a failed step reported OK")
	}
}
