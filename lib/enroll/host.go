// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package enroll

// Host identifies a cluster node reachable by the daemon. The name is
// the identity; the address is where to reach it on the network and
// may differ from the name.
type Host struct {
	// Name is the node's identity, e.g. "custom-node-name".
	Name string

	// Addr is the node's network address. Empty means the name is
	// also the address.
	Addr string
}

// Address returns the effective network address: Addr when set,
// otherwise the name.
func (h Host) Address() string {
	if h.Addr != "" {
		return h.Addr
	}
	return h.Name
}

// HostState is the issuance-side view of the daemon's two-state host
// machine. A registered host is pending until its token is accepted;
// acceptance promotes it to trusted, and no edge leads back.
type HostState int

const (
	// StatePending means a token exists for the host but has not
	// been accepted. Status queries are refused in this state.
	StatePending HostState = iota

	// StateTrusted means the host's token has been explicitly
	// accepted; the host may be queried and its token validates.
	StateTrusted
)

func (s HostState) String() string {
	if s == StateTrusted {
		return "trusted"
	}
	return "pending"
}
