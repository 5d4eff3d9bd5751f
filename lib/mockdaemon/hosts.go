// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package mockdaemon

import "fmt"

// hostState is the daemon's two-state host machine. A registered host
// starts pending; the acceptance step promotes it to trusted. There
// is no reverse edge.
type hostState int

const (
	hostPending hostState = iota
	hostTrusted
)

func (s hostState) String() string {
	if s == hostTrusted {
		return "trusted"
	}
	return "pending"
}

// hostRecord is one registered host.
type hostRecord struct {
	addr  string
	token string
	state hostState
}

// upsertTrustedHost records a host as trusted with the given token.
// Used by the interactive authentication path, which establishes
// trust in one exchange.
func (d *Daemon) upsertTrustedHost(name, addr, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr == "" {
		addr = name
	}
	d.hosts[name] = &hostRecord{addr: addr, token: token, state: hostTrusted}
}

// registerHost records a host in the pending state. Re-registering
// with the identical token is a no-op; a conflicting token for an
// already-known host is refused so two tokens can never both
// validate for one host.
func (d *Daemon) registerHost(name, addr, token string) error {
	if name == "" || token == "" {
		return fmt.Errorf("host name and token are required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.hosts[name]; ok {
		if existing.token == token {
			return nil
		}
		return fmt.Errorf("host %q is already registered with a different token", name)
	}

	if addr == "" {
		addr = name
	}
	d.hosts[name] = &hostRecord{addr: addr, token: token, state: hostPending}
	return nil
}

// acceptHostToken promotes a pending host to trusted. The presented
// token must match the registered one. Accepting an already-trusted
// host with the matching token re-confirms the state and succeeds.
func (d *Daemon) acceptHostToken(name, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	host, ok := d.hosts[name]
	if !ok {
		return fmt.Errorf("unknown host %q", name)
	}
	if host.token != token {
		return fmt.Errorf("token mismatch for host %q", name)
	}
	host.state = hostTrusted
	return nil
}

// hostStatus reports a trusted host's state. Pending hosts are
// refused: status queries are not available until acceptance
// completes.
func (d *Daemon) hostStatus(name string) (map[string]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	host, ok := d.hosts[name]
	if !ok {
		return nil, fmt.Errorf("unknown host %q", name)
	}
	if host.state != hostTrusted {
		return nil, fmt.Errorf("host %q is pending token acceptance", name)
	}
	return map[string]any{
		"name":  name,
		"addr":  host.addr,
		"state": "Online",
	}, nil
}
