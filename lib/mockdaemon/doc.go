// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package mockdaemon is an in-process stand-in for cordond, the
// cluster-configuration daemon the harness verifies. It implements
// exactly the externally observable contracts the harness exercises —
// the authentication exchange, all three API generations, the Unix
// socket transport with peer-identity trust, and the V2 task
// lifecycle — and nothing of the real daemon's cluster management.
//
// Package tests across the repository run against this daemon, and
// cmd/cordond-mock wraps it in a standalone binary so the full
// cordon-verify CLI can be exercised without a cluster.
//
// Authorization model: a request is authorized when it carries a
// token cookie matching an issued account token or a trusted host
// token, or when it arrives on the Unix socket from a peer uid in the
// trusted set (resolved via SO_PEERCRED). Pending hosts' tokens do
// not validate until the acceptance step promotes the host.
//
// The HTTPS listener serves a freshly generated self-signed
// certificate, matching a real daemon's state after a fresh install;
// clients anchor trust in the issued token, not the certificate.
package mockdaemon
