// Copyright 2026 The Cordon Authors
// SPDX-License-Identifier: Apache-2.0

package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// formatVersion is the on-disk schema version. Bumped only on
// incompatible changes; readers reject versions they do not know.
const formatVersion = 1

// Entry is one authenticated host: its network address and the token
// the daemon issued for it.
type Entry struct {
	// Addr is the network address the host is reachable at. Defaults
	// to the host name when the host was registered without an
	// explicit address.
	Addr string `json:"addr"`

	// Token is the opaque credential issued for this host.
	Token string `json:"token"`
}

// fileFormat is the on-disk representation of the store.
type fileFormat struct {
	FormatVersion int              `json:"format_version"`
	Hosts         map[string]Entry `json:"hosts"`
}

// Store holds per-host credentials and knows how to persist them.
// Store is not safe for concurrent use; the harness is strictly
// sequential.
type Store struct {
	path  string
	hosts map[string]Entry
}

// Load reads the store from path. A missing file yields an empty
// store bound to that path — first use of a fresh install has no
// credentials yet, and that is not an error.
func Load(path string) (*Store, error) {
	store := &Store{
		path:  path,
		hosts: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("reading credential store %s: %w", path, err)
	}

	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing credential store %s: %w", path, err)
	}
	if file.FormatVersion != formatVersion {
		return nil, fmt.Errorf("credential store %s: unsupported format version %d (expected %d)",
			path, file.FormatVersion, formatVersion)
	}
	if file.Hosts != nil {
		store.hosts = file.Hosts
	}
	return store, nil
}

// Path returns the file path this store persists to.
func (s *Store) Path() string {
	return s.path
}

// Set records the credential for a host, superseding any previous
// entry. An empty addr defaults to the host name.
func (s *Store) Set(name, addr, token string) {
	if addr == "" {
		addr = name
	}
	s.hosts[name] = Entry{Addr: addr, Token: token}
}

// Get returns the entry for a host.
func (s *Store) Get(name string) (Entry, bool) {
	entry, ok := s.hosts[name]
	return entry, ok
}

// Token returns the token for a host, or "" when the host is unknown.
func (s *Store) Token(name string) string {
	return s.hosts[name].Token
}

// Names returns the known host names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.hosts))
	for name := range s.hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the store to its path with mode 0600, creating parent
// directories as needed. The file is replaced atomically so a reader
// never observes a partial write.
func (s *Store) Save() error {
	file := fileFormat{
		FormatVersion: formatVersion,
		Hosts:         s.hosts,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credential store: %w", err)
	}
	data = append(data, '\n')

	directory := filepath.Dir(s.path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("creating credential store directory %s: %w", directory, err)
	}

	// Write-then-rename within the same directory keeps the replace
	// atomic on POSIX filesystems.
	temporary, err := os.CreateTemp(directory, ".known-hosts-*")
	if err != nil {
		return fmt.Errorf("creating temporary credential store file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if err := temporary.Chmod(0600); err != nil {
		temporary.Close()
		return fmt.Errorf("setting credential store mode: %w", err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("writing credential store: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("closing credential store: %w", err)
	}
	if err := os.Rename(temporaryPath, s.path); err != nil {
		return fmt.Errorf("replacing credential store %s: %w", s.path, err)
	}
	return nil
}
