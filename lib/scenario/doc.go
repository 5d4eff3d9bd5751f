// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package scenario sequences the verification workflow into an
// ordered, fail-fast run: establish the administrative credential,
// authenticate the primary host, optionally form a cluster when the
// environment supervises services, validate all three API generations
// over both transports, enroll a second host via the pre-generated
// token path, and finish with the access-isolation check.
//
// Any step's failure aborts the remaining steps. The one exception is
// the cluster-formation sub-step, which is skipped — not failed —
// when no supervising init system is present; that is an
// environmental capability, not a verdict about the daemon.
//
// Each step re-checks its preconditions against daemon state rather
// than assuming them from in-process memory, so an aborted run never
// leaves a later run confused about which hosts are trusted.
package scenario
