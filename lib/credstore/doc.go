// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package credstore persists the harness's view of authenticated
// hosts: a file mapping host name to network address and token.
//
// The file is JSON with an explicit format version so that
// out-of-band tooling can extract a token for direct low-level calls
// against the daemon without going through the harness:
//
//	{
//	  "format_version": 1,
//	  "hosts": {
//	    "localhost": {"addr": "localhost", "token": "..."}
//	  }
//	}
//
// Tokens are opaque secrets, so the file is written with mode 0600
// and replaced atomically (write to a temporary file in the same
// directory, then rename) so a concurrent reader never observes a
// partially written store.
package credstore
