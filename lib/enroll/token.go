// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package enroll

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// tokenBytes is the size of a generated token before encoding. The
// daemon treats tokens as opaque; 32 random bytes matches what
// operators generate out of band.
const tokenBytes = 32

// GenerateTokenFile creates a fresh token — 32 random bytes, base64
// encoded — and writes it to path with mode 0600. Returns the token
// text. The file is the hand-off artifact for the pre-generated
// authentication path: registration and acceptance both reference it.
func GenerateTokenFile(path string) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token := base64.StdEncoding.EncodeToString(raw)

	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return "", fmt.Errorf("writing token file %s: %w", path, err)
	}
	return token, nil
}

// ReadTokenFile reads a token file, trimming surrounding whitespace.
func ReadTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token file %s: %w", path, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", path)
	}
	return token, nil
}
