// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package flash is the onboard file store the standalone modes keep
// their dumps and logs in. It mirrors the mount discipline of the
// device's flash filesystem: a store is useless until mounted, names
// are flat, and safe writes survive power loss part-way through.
package flash

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AxisRay/proxmark3/internal/syncutil"
)

// Errors
var (
	// ErrNotMounted indicates an operation ran before Mount
	ErrNotMounted = errors.New("flash not mounted")
	// ErrNameInvalid indicates a file name with path structure in it
	ErrNameInvalid = errors.New("invalid flash file name")
	// ErrNotFound indicates the named file does not exist
	ErrNotFound = errors.New("flash file not found")
)

// Safety selects how hard a write tries to survive interruption
type Safety int

const (
	// SafetyNormal writes in place, fastest
	SafetyNormal Safety = iota
	// SafetySafe stages the data in a temporary file, syncs it and
	// renames over the target, so a torn write never corrupts the old
	// contents
	SafetySafe
)

// Store is a directory-backed flash file store. All operations are
// safe for concurrent use.
type Store struct {
	root    string
	mu      syncutil.Mutex
	mounted bool
}

// New creates a store rooted at dir. Nothing touches the filesystem
// until Mount.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Mount makes the store usable, creating the root directory on first
// use. Mounting twice is harmless.
func (s *Store) Mount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted {
		return nil
	}
	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return fmt.Errorf("mounting flash at %s: %w", s.root, err)
	}
	s.mounted = true
	return nil
}

// Unmount releases the store. Unmounting an unmounted store is
// harmless.
func (s *Store) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounted = false
}

// Mounted reports whether the store is usable
func (s *Store) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// path validates name and resolves it under the root
func (s *Store) path(name string) (string, error) {
	s.mu.Lock()
	mounted := s.mounted
	s.mu.Unlock()
	if !mounted {
		return "", ErrNotMounted
	}
	if name == "" || name == "." || name == ".." ||
		name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrNameInvalid, name)
	}
	return filepath.Join(s.root, name), nil
}

// Exists reports whether name is present
func (s *Store) Exists(name string) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return true, nil
}

// Size returns the byte size of name
func (s *Store) Size(name string) (int64, error) {
	p, err := s.path(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return 0, fmt.Errorf("stat %s: %w", name, err)
	}
	return info.Size(), nil
}

// ReadFile returns the contents of name
func (s *Store) ReadFile(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // name is validated flat
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// WriteFile replaces the contents of name, creating it if needed
func (s *Store) WriteFile(name string, data []byte, safety Safety) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if safety == SafetySafe {
		return s.writeSafe(p, name, data)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// writeSafe stages and renames so the old contents stay intact until
// the new ones are durable
func (s *Store) writeSafe(p, name string, data []byte) error {
	tmp, err := os.CreateTemp(s.root, name+".tmp*")
	if err != nil {
		return fmt.Errorf("staging %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() {
		// Left behind only on failure
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("staging %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing staged %s: %w", name, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("committing %s: %w", name, err)
	}
	return nil
}

// Append adds data to the end of name, creating the file when it does
// not exist yet. SafetySafe rewrites the whole file through the staged
// path; SafetyNormal appends in place.
func (s *Store) Append(name string, data []byte, safety Safety) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	if safety == SafetySafe {
		existing, err := os.ReadFile(p) //nolint:gosec // name is validated flat
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("reading %s for append: %w", name, err)
		}
		return s.writeSafe(p, name, append(existing, data...))
	}

	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // name is validated flat
	if err != nil {
		return fmt.Errorf("opening %s for append: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending to %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	return nil
}

// Remove deletes name. Removing a missing file is not an error.
func (s *Store) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return nil
}
