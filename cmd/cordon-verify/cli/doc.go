// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-tree framework for the
// cordon-verify binary: command dispatch, flag parsing with typo
// suggestions, structured help output, logger construction, and
// password prompting.
package cli
