// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch sends requests to a cordond daemon across its three
// API generations and decodes the responses into outcomes.
//
// The daemon exposes mutually incompatible request contracts that
// accumulated over its lifetime:
//
//   - V0, legacy plaintext: POST /remote/<operation> with the payload
//     JSON wrapped in a data_json form field. A response fails exactly
//     when its status field is "exception"; every other status value
//     passes. That asymmetric sentinel is the daemon's observed
//     behavior and is preserved deliberately.
//   - V1, versioned endpoints: POST /api/v1/<operation>/<version> with
//     a raw JSON body. Success requires status == "success".
//   - V2, structured RPC: a dotted command name plus a JSON parameter
//     object, delivered either synchronously (the call blocks for the
//     task's final state) or asynchronously (the call returns on
//     acceptance; completion is observed out of band).
//
// Two transports carry these requests: HTTPS to the daemon's TLS port,
// and the daemon's local Unix domain socket, which serves the identical
// V1 path scheme. Credentials are modeled as an [AuthContext] with two
// variants — [TokenCookie] for explicit token authentication and
// [ImplicitPeerTrust] for socket requests authorized by peer identity —
// so the framing code never special-cases the transport. HTTPS requests
// always require a token; only the socket accepts implicit trust.
//
// The dispatcher never swallows a non-success outcome: contract
// violations surface as a [ContractError] naming the generation,
// transport, mode, and operation that failed, alongside the decoded
// outcome for diagnosis. Connection-level failures surface as a
// [TransportError].
package dispatch
