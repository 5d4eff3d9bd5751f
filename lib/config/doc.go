// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the cordon-verify
// harness.
//
// Configuration is loaded from a single YAML file specified by:
//   - CORDON_VERIFY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery beyond built-in
// defaults. This ensures deterministic, auditable configuration with
// no hidden overrides. The only expansion performed is ${HOME} and
// similar path variables for portability.
package config
