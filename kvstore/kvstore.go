// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

// Package kvstore implements the per-agent durable key-value store (§4.4):
// a JSON-file-backed map persisted with the same write-rename discipline as
// crypto/storage's private key file.
package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is a simple JSON-file-backed `{string -> JSON value}` map owned by
// an agent, matching §6.5's `agent_<name>_data.json`.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open opens (or creates) a key-value store backed by path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("kvstore: create directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

func (s *Store) readAll() (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: read: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("kvstore: decode: %w", err)
	}
	return values, nil
}

// writeAll persists values atomically: write to a temp file in the same
// directory, then rename over the target, so a crash mid-write never
// corrupts the previous contents.
func (s *Store) writeAll(values map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("kvstore: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".kvstore-*.tmp")
	if err != nil {
		return fmt.Errorf("kvstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("kvstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("kvstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("kvstore: rename temp file: %w", err)
	}
	return nil
}

// Set stores value (marshaled as JSON) under k.
func (s *Store) Set(k string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readAll()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: value for %q is not JSON-representable: %w", k, err)
	}
	values[k] = raw
	return s.writeAll(values)
}

// Get unmarshals the value stored under k into out. Returns false if k is
// not present.
func (s *Store) Get(k string, out interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readAll()
	if err != nil {
		return false, err
	}
	raw, ok := values[k]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("kvstore: decode value for %q: %w", k, err)
	}
	return true, nil
}

// Has reports whether k is present.
func (s *Store) Has(k string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readAll()
	if err != nil {
		return false, err
	}
	_, ok := values[k]
	return ok, nil
}

// Remove deletes k, if present.
func (s *Store) Remove(k string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readAll()
	if err != nil {
		return err
	}
	delete(values, k)
	return s.writeAll(values)
}

// Clear removes every key.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAll(make(map[string]json.RawMessage))
}
