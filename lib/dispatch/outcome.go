// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"encoding/json"
	"fmt"
)

// Outcome is a decoded daemon response. Whether it counts as success
// depends on the generation's sentinel: V0 fails only on
// status == "exception", V1 succeeds only on status == "success".
type Outcome struct {
	// Status is the generation's top-level status field.
	Status string `json:"status"`

	// StatusMsg carries human-readable diagnostics on failure.
	StatusMsg string `json:"status_msg,omitempty"`

	// Data is the operation's payload, left undecoded for the caller.
	Data json.RawMessage `json:"data,omitempty"`

	// Raw is the complete undecoded response body, retained so
	// failures can be reported with full context.
	Raw []byte `json:"-"`
}

// decodeOutcome parses a response body into an Outcome. The body is
// retained verbatim in Raw even when only part of it decodes into the
// envelope fields.
func decodeOutcome(body []byte) (*Outcome, error) {
	outcome := &Outcome{Raw: body}
	if err := json.Unmarshal(body, outcome); err != nil {
		return nil, fmt.Errorf("decoding response body %q: %w", excerpt(body), err)
	}
	return outcome, nil
}

// excerpt shortens a response body for inclusion in error messages.
func excerpt(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
