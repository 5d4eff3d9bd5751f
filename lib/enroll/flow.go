// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package enroll

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cordon-foundation/cordon-verify/lib/credstore"
	"github.com/cordon-foundation/cordon-verify/lib/dispatch"
)

// AuthError is a failed authentication: bad credentials or an
// unreachable host. It is fatal to the scenario.
type AuthError struct {
	// Host is the host the issuance was for.
	Host string

	// Err is the underlying refusal or transport failure.
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for host %q: %v", e.Host, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Flow performs token issuance against one daemon and records issued
// credentials in the store. Enrollment API calls (register, accept,
// status) are made under the administrative credential.
type Flow struct {
	client *dispatch.Client
	store  *credstore.Store
	admin  dispatch.AuthContext
	logger *slog.Logger
}

// NewFlow binds a flow to a dispatcher, a credential store, and the
// administrative credential used for enrollment calls.
func NewFlow(client *dispatch.Client, store *credstore.Store, admin dispatch.AuthContext, logger *slog.Logger) *Flow {
	return &Flow{
		client: client,
		store:  store,
		admin:  admin,
		logger: logger,
	}
}

// AuthPassword authenticates a host interactively. On success the
// issued token is persisted to the credential store and returned;
// the daemon records the host as trusted in the same exchange.
func (f *Flow) AuthPassword(ctx context.Context, host Host, username, password string) (string, error) {
	token, err := f.client.Authenticate(ctx, username, password)
	if err != nil {
		return "", &AuthError{Host: host.Name, Err: err}
	}

	f.store.Set(host.Name, host.Addr, token)
	if err := f.store.Save(); err != nil {
		return "", fmt.Errorf("persisting credential for %q: %w", host.Name, err)
	}

	f.logger.Info("host authenticated", "host", host.Name, "addr", host.Address())
	return token, nil
}

// RegisterWithTokenFile authenticates a host by a pre-generated token
// file. The daemon records the host as pending; the credential is
// persisted to the store immediately so later direct calls can use it
// once the host is accepted.
func (f *Flow) RegisterWithTokenFile(ctx context.Context, host Host, tokenPath string) error {
	token, err := ReadTokenFile(tokenPath)
	if err != nil {
		return &AuthError{Host: host.Name, Err: err}
	}

	_, err = f.client.CallV1(ctx, dispatch.TransportHTTPS, f.admin, "host-register", "v1", map[string]string{
		"name":  host.Name,
		"addr":  host.Address(),
		"token": token,
	})
	if err != nil {
		return &AuthError{Host: host.Name, Err: err}
	}

	f.store.Set(host.Name, host.Addr, token)
	if err := f.store.Save(); err != nil {
		return fmt.Errorf("persisting credential for %q: %w", host.Name, err)
	}

	f.logger.Info("host registered pending acceptance", "host", host.Name)
	return nil
}

// AcceptToken promotes a pending host to trusted by presenting the
// same token file again. Accepting an already-trusted host with the
// matching token re-confirms the state and succeeds.
func (f *Flow) AcceptToken(ctx context.Context, host Host, tokenPath string) error {
	token, err := ReadTokenFile(tokenPath)
	if err != nil {
		return &AuthError{Host: host.Name, Err: err}
	}

	_, err = f.client.CallV1(ctx, dispatch.TransportHTTPS, f.admin, "host-accept-token", "v1", map[string]string{
		"name":  host.Name,
		"token": token,
	})
	if err != nil {
		return fmt.Errorf("accepting token for host %q: %w", host.Name, err)
	}

	f.logger.Info("host token accepted", "host", host.Name)
	return nil
}

// HostStatus queries a host's reported state, e.g. "Online". The
// daemon refuses the query while the host is pending; that refusal
// surfaces as the dispatch ContractError from the status call.
func (f *Flow) HostStatus(ctx context.Context, host Host) (string, error) {
	outcome, err := f.client.CallV1(ctx, dispatch.TransportHTTPS, f.admin, "host-status", "v1", map[string]string{
		"name": host.Name,
	})
	if err != nil {
		return "", err
	}

	var data struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(outcome.Data, &data); err != nil {
		return "", fmt.Errorf("decoding host status for %q: %w", host.Name, err)
	}
	return data.State, nil
}
