// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

// Generation identifies one of the daemon's API generations.
type Generation int

const (
	// GenerationV0 is the legacy plaintext API under /remote/.
	GenerationV0 Generation = iota
	// GenerationV1 is the versioned JSON API under /api/v1/.
	GenerationV1
	// GenerationV2 is the structured task RPC under /api/v2/.
	GenerationV2
)

func (g Generation) String() string {
	switch g {
	case GenerationV0:
		return "v0"
	case GenerationV1:
		return "v1"
	case GenerationV2:
		return "v2"
	}
	return "unknown"
}

// Transport selects the request channel to the daemon.
type Transport int

const (
	// TransportHTTPS sends the request to the daemon's TLS port.
	TransportHTTPS Transport = iota
	// TransportSocket sends the request over the daemon's local Unix
	// domain socket. The path scheme and framing are identical to
	// HTTPS; only the channel and the authorization source differ.
	TransportSocket
)

func (t Transport) String() string {
	switch t {
	case TransportHTTPS:
		return "https"
	case TransportSocket:
		return "socket"
	}
	return "unknown"
}

// Mode selects when a V2 call's result becomes observable. The mode
// never changes what the result is, only whether the caller blocks
// for it.
type Mode int

const (
	// ModeSync blocks until the daemon finishes processing and
	// returns the task's final state inline.
	ModeSync Mode = iota
	// ModeAsync returns as soon as the daemon accepts the task;
	// completion is observed out of band via TaskResult.
	ModeAsync
)

func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	}
	return "unknown"
}

// Path templates per generation. V0 and V1 interpolate the operation
// (and for V1 the version segment); V2 uses fixed task endpoints
// addressed by command name in the request body.
const (
	authPath         = "/remote/auth"
	v0PathPrefix     = "/remote/"
	v1PathPrefix     = "/api/v1/"
	v2TaskRunPath    = "/api/v2/task/run"
	v2TaskCreatePath = "/api/v2/task/create"
	v2TaskResultPath = "/api/v2/task/result"
)
