// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadPassword obtains the administrative password from the configured
// source. The source is a file path, or "-" for an interactive prompt
// on the controlling terminal. The CORDON_VERIFY_PASSWORD environment
// variable overrides both, which is what CI uses.
func ReadPassword(source, username string) (string, error) {
	if password := os.Getenv("CORDON_VERIFY_PASSWORD"); password != "" {
		return password, nil
	}

	if source == "-" {
		return promptPassword(username)
	}

	content, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("reading password file: %w", err)
	}
	password := strings.TrimSpace(string(content))
	if password == "" {
		return "", fmt.Errorf("password file %s is empty", source)
	}
	return password, nil
}

// promptPassword reads a password from the terminal with echo
// disabled. Fails when stdin is not a terminal - non-interactive
// callers must use a password file or the environment variable.
func promptPassword(username string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal: provide a password file or set CORDON_VERIFY_PASSWORD")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := string(raw)
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	return password, nil
}
