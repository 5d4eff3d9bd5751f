// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package enroll performs token issuance against the daemon: given a
// host and either a password or a pre-generated token file, produce a
// credential the daemon accepts and record it in the credential store.
//
// Two paths exist:
//
//   - Interactive: submit username and password over the daemon's
//     authentication channel. The daemon issues (or re-issues) the
//     account's token and records the host as trusted in one exchange.
//     Authenticating the same host twice is idempotent — the daemon
//     returns the same token, never two conflicting ones.
//
//   - Pre-generated: generate 32 random bytes, encode as base64, write
//     to a file, and register the host by that token. The daemon
//     records the host as *pending*; a separate acceptance call with
//     the same token file promotes it to *trusted*. Only after
//     acceptance may the host be queried for status.
//
// Failures to authenticate surface as an [*AuthError] naming the host,
// and abort the scenario — there is no retry.
package enroll
