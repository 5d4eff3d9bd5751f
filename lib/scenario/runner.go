// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cordon-foundation/cordon-verify/lib/credstore"
	"github.com/cordon-foundation/cordon-verify/lib/dispatch"
	"github.com/cordon-foundation/cordon-verify/lib/enroll"
)

// Runner drives the verification scenario against one daemon.
type Runner struct {
	// Client dispatches API requests. Required.
	Client *dispatch.Client

	// Store persists issued credentials. Required.
	Store *credstore.Store

	// Primary is the interactively authenticated host.
	Primary enroll.Host

	// Secondary is the host enrolled via the pre-generated token
	// path. Must differ from Primary.
	Secondary enroll.Host

	// Username and Password are the administrative principal's
	// interactive credentials. Password may be empty when AdminToken
	// is set.
	Username string
	Password string

	// AdminToken is a pre-known administrative credential. When set,
	// step one seeds the store with it and the interactive exchange
	// only re-confirms it.
	AdminToken string

	// TokenDir is where generated token files are written.
	TokenDir string

	// FullClusterSetup reports whether the destructive
	// cluster-formation sub-step may run. Nil means
	// [SupportsFullClusterSetup].
	FullClusterSetup func() bool

	// IsolationCheck runs the access-isolation probe under an
	// unprivileged principal. Required.
	IsolationCheck func(ctx context.Context) error

	// Logger is the structured logger. Required.
	Logger *slog.Logger

	// admin is the credential threaded from the issuance steps into
	// the dispatch steps.
	admin dispatch.TokenCookie

	// httpsV1 is the V1-over-HTTPS outcome retained for the
	// transport-equivalence comparison.
	httpsV1 *dispatch.Outcome
}

// step is one ordered unit of the scenario: a name and an action
// returning a human-readable detail or an error.
type step struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// Run executes the scenario in order, fail-fast. The returned report
// contains one result per executed step; a failed step is the last.
func (r *Runner) Run(ctx context.Context) *Report {
	report := &Report{}

	for _, s := range r.steps() {
		detail, err := s.run(ctx)

		var skip *Skip
		switch {
		case err == nil:
			report.Steps = append(report.Steps, StepResult{
				Name:   s.name,
				Status: Passed,
				Detail: detail,
			})
		case errors.As(err, &skip):
			report.Steps = append(report.Steps, StepResult{
				Name:   s.name,
				Status: Skipped,
				Detail: skip.Reason,
			})
		default:
			r.Logger.Error("scenario step failed", "step", s.name, "error", err)
			report.Steps = append(report.Steps, StepResult{
				Name:   s.name,
				Status: Failed,
				Err:    err,
			})
			return report
		}
	}
	return report
}

func (r *Runner) steps() []step {
	return []step{
		{"admin-credential", r.stepAdminCredential},
		{"authenticate-primary", r.stepAuthenticatePrimary},
		{"cluster-setup", r.stepClusterSetup},
		{"validate-v0", r.stepValidateV0},
		{"validate-v1-https", r.stepValidateV1HTTPS},
		{"enroll-secondary", r.stepEnrollSecondary},
		{"validate-v1-socket", r.stepValidateV1Socket},
		{"validate-v2", r.stepValidateV2},
		{"access-isolation", r.stepAccessIsolation},
	}
}

// flow builds the issuance flow under the current admin credential.
func (r *Runner) flow() *enroll.Flow {
	return enroll.NewFlow(r.Client, r.Store, r.admin, r.Logger)
}

// stepAdminCredential establishes the administrative credential: a
// preconfigured token is seeded into the store directly; otherwise
// the configured password must be present for the interactive
// exchange in the next step.
func (r *Runner) stepAdminCredential(context.Context) (string, error) {
	if r.AdminToken != "" {
		r.admin = dispatch.TokenCookie(r.AdminToken)
		r.Store.Set(r.Primary.Name, r.Primary.Addr, r.AdminToken)
		if err := r.Store.Save(); err != nil {
			return "", fmt.Errorf("seeding administrative credential: %w", err)
		}
		return fmt.Sprintf("seeded preconfigured token for %q", r.Primary.Name), nil
	}
	if r.Password == "" {
		return "", fmt.Errorf("no administrative credential configured: set a password or a token")
	}
	return fmt.Sprintf("password credential configured for %q", r.Username), nil
}

// stepAuthenticatePrimary performs the interactive authentication of
// the primary host and asserts that repeating it is idempotent: the
// second issuance returns the same token, so the first is never
// invalidated.
func (r *Runner) stepAuthenticatePrimary(ctx context.Context) (string, error) {
	if r.Password == "" {
		// Preconfigured token path: nothing to exchange, the token
		// is verified by the dispatch steps that follow.
		return "reusing preconfigured administrative token", nil
	}

	first, err := r.flow().AuthPassword(ctx, r.Primary, r.Username, r.Password)
	if err != nil {
		return "", err
	}
	second, err := r.flow().AuthPassword(ctx, r.Primary, r.Username, r.Password)
	if err != nil {
		return "", fmt.Errorf("re-authentication of %q: %w", r.Primary.Name, err)
	}
	if first != second {
		return "", fmt.Errorf("re-authentication of %q issued a conflicting token", r.Primary.Name)
	}

	r.admin = dispatch.TokenCookie(first)
	return fmt.Sprintf("host %q authenticated, re-authentication idempotent", r.Primary.Name), nil
}

// stepClusterSetup runs the destructive cluster-formation command,
// but only under a full init system able to supervise the cluster
// services it starts. Absence of that capability skips the step.
func (r *Runner) stepClusterSetup(ctx context.Context) (string, error) {
	supports := r.FullClusterSetup
	if supports == nil {
		supports = SupportsFullClusterSetup
	}
	if !supports() {
		return "", &Skip{Reason: "no supervising init system present (PID 1 is not systemd)"}
	}

	task, err := r.Client.RunTask(ctx, dispatch.TransportHTTPS, r.admin, "cluster.setup", map[string]any{
		"cluster_name": "cordon",
		"nodes":        []string{r.Primary.Name},
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("cluster formed (task %s)", task.TaskIdent), nil
}

// stepValidateV0 exercises the legacy plaintext API with the primary
// credential. Anything but status "exception" passes the legacy
// sentinel.
func (r *Runner) stepValidateV0(ctx context.Context) (string, error) {
	outcome, err := r.Client.CallV0(ctx, r.admin, "cluster_status_plaintext", map[string]any{})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("v0 cluster_status_plaintext returned status %q", outcome.Status), nil
}

// stepValidateV1HTTPS exercises the versioned API over HTTPS and
// retains the outcome for the socket-equivalence comparison.
func (r *Runner) stepValidateV1HTTPS(ctx context.Context) (string, error) {
	outcome, err := r.Client.CallV1(ctx, dispatch.TransportHTTPS, r.admin,
		"resource-agent-get-agents-list", "v1", map[string]any{})
	if err != nil {
		return "", err
	}
	r.httpsV1 = outcome
	return "v1 resource-agent-get-agents-list succeeded over https", nil
}

// stepEnrollSecondary walks the pre-generated token path end to end:
// generate, register pending, confirm the pending host refuses status
// queries, accept, and confirm the host reports Online.
func (r *Runner) stepEnrollSecondary(ctx context.Context) (string, error) {
	if err := os.MkdirAll(r.TokenDir, 0700); err != nil {
		return "", fmt.Errorf("creating token directory %s: %w", r.TokenDir, err)
	}
	tokenPath := filepath.Join(r.TokenDir, r.Secondary.Name+".token")
	if _, err := enroll.GenerateTokenFile(tokenPath); err != nil {
		return "", err
	}

	flow := r.flow()
	if err := flow.RegisterWithTokenFile(ctx, r.Secondary, tokenPath); err != nil {
		return "", err
	}

	// A pending host must reject status queries until acceptance.
	if _, err := flow.HostStatus(ctx, r.Secondary); err == nil {
		return "", fmt.Errorf("pending host %q answered a status query before acceptance", r.Secondary.Name)
	}

	if err := flow.AcceptToken(ctx, r.Secondary, tokenPath); err != nil {
		return "", err
	}

	state, err := flow.HostStatus(ctx, r.Secondary)
	if err != nil {
		return "", err
	}
	if state != "Online" {
		return "", fmt.Errorf("host %q reported state %q, want Online", r.Secondary.Name, state)
	}
	return fmt.Sprintf("host %q enrolled via token file and reported Online", r.Secondary.Name), nil
}

// stepValidateV1Socket repeats the V1 call unmodified over the local
// socket under implicit peer trust and asserts the outcome is
// equivalent to the HTTPS one.
func (r *Runner) stepValidateV1Socket(ctx context.Context) (string, error) {
	outcome, err := r.Client.CallV1(ctx, dispatch.TransportSocket, dispatch.ImplicitPeerTrust{},
		"resource-agent-get-agents-list", "v1", map[string]any{})
	if err != nil {
		return "", err
	}

	if r.httpsV1 == nil {
		return "", fmt.Errorf("https v1 outcome missing for comparison")
	}
	if outcome.Status != r.httpsV1.Status {
		return "", fmt.Errorf("socket v1 status %q differs from https status %q",
			outcome.Status, r.httpsV1.Status)
	}
	if !jsonEqual(outcome.Data, r.httpsV1.Data) {
		return "", fmt.Errorf("socket v1 data differs from https data")
	}
	return "v1 outcome equivalent over socket and https", nil
}

// stepValidateV2 exercises both V2 delivery modes: async must be
// accepted, sync must return a successful final state inline.
func (r *Runner) stepValidateV2(ctx context.Context) (string, error) {
	params := map[string]any{"agent_name": "ocf:heartbeat:Dummy"}

	accepted, err := r.Client.CreateTask(ctx, dispatch.TransportHTTPS, r.admin,
		"resource_agent.get_agent_metadata", params)
	if err != nil {
		return "", err
	}

	finished, err := r.Client.RunTask(ctx, dispatch.TransportHTTPS, r.admin,
		"resource_agent.get_agent_metadata", params)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("v2 async accepted (%s), sync finished (%s)",
		accepted.TaskIdent, finished.TaskIdent), nil
}

// stepAccessIsolation runs the negative test: the unprivileged
// principal's socket connection must be refused at the transport
// layer.
func (r *Runner) stepAccessIsolation(ctx context.Context) (string, error) {
	if r.IsolationCheck == nil {
		return "", fmt.Errorf("isolation check not configured")
	}
	if err := r.IsolationCheck(ctx); err != nil {
		return "", err
	}
	return "unprivileged socket connection refused at transport layer", nil
}

// jsonEqual compares two JSON documents structurally, ignoring key
// order and whitespace.
func jsonEqual(a, b json.RawMessage) bool {
	if len(a) == 0 || len(b) == 0 {
		return bytes.Equal(a, b)
	}
	var left, right any
	if err := json.Unmarshal(a, &left); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &right); err != nil {
		return false
	}
	normalizedLeft, err := json.Marshal(left)
	if err != nil {
		return false
	}
	normalizedRight, err := json.Marshal(right)
	if err != nil {
		return false
	}
	return bytes.Equal(normalizedLeft, normalizedRight)
}
