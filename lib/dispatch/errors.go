// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRefused is returned by Authenticate when the daemon
// rejects the submitted username/password. Distinguish it from
// transport failures with errors.Is.
var ErrAuthenticationRefused = errors.New("daemon refused the submitted credentials")

// TransportError is a connection-level failure: TLS handshake, socket
// connect, request write, or response read. The request never produced
// a decodable outcome. In the access-isolation check a specific
// TransportError (permission denied at connect) is the expected
// result; everywhere else it is fatal.
type TransportError struct {
	// Transport is the channel the request was attempted on.
	Transport Transport

	// Endpoint is the URL or socket path the request targeted.
	Endpoint string

	// Err is the underlying connection error.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport failure for %s: %v", e.Transport, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ContractError is a decoded response whose status is not the
// generation's success sentinel. The transport round trip succeeded;
// the daemon reported failure (or, for V0, an exception). The decoded
// outcome travels with the error so scenario reports can show the
// response body.
type ContractError struct {
	// Generation, Transport, and Mode name the exact API surface that
	// failed. Mode is meaningful only for V2 calls; V0/V1 report
	// ModeSync because their calls always block for the result.
	Generation Generation
	Transport  Transport
	Mode       Mode

	// Operation is the operation or dotted command name.
	Operation string

	// Outcome is the decoded response that violated the contract.
	Outcome *Outcome
}

func (e *ContractError) Error() string {
	message := fmt.Sprintf("%s %s %s call %q failed with status %q",
		e.Generation, e.Transport, e.Mode, e.Operation, e.Outcome.Status)
	if e.Outcome.StatusMsg != "" {
		message += ": " + e.Outcome.StatusMsg
	}
	return message
}
