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

// Package storage holds the durable KeyStorage backend. It persists one
// private_keys.json-style file per agent (§6.5), writing it atomically
// (write-to-temp, then rename) so a crash mid-write never corrupts the
// previous contents — the same write-rename discipline as the teacher's
// file key storage, extended to cover arbitrary key types.
package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sagecrypto "github.com/agentmesh/uagents-go/crypto"
	"github.com/agentmesh/uagents-go/crypto/keys"
)

type keyRecord struct {
	Type    sagecrypto.KeyType `json:"type"`
	Private string             `json:"private"` // hex-encoded raw seed/private bytes
}

// fileKeyStorage implements sagecrypto.KeyStorage backed by a single JSON
// file under directory, keyed by key ID, written with 0600 permissions.
type fileKeyStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileKeyStorage opens (or creates) a private-key store rooted at
// directory/private_keys.json.
func NewFileKeyStorage(directory string) (sagecrypto.KeyStorage, error) {
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	return &fileKeyStorage{path: filepath.Join(directory, "private_keys.json")}, nil
}

func (s *fileKeyStorage) readAll() (map[string]keyRecord, error) {
	records := make(map[string]keyRecord)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read: %w", err)
	}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("storage: decode: %w", err)
	}
	return records, nil
}

// writeAll persists records atomically: write to a temp file in the same
// directory, then rename over the target. Rename is atomic on POSIX
// filesystems, so readers never observe a partially-written file.
func (s *fileKeyStorage) writeAll(records map[string]keyRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".private_keys-*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: rename temp file: %w", err)
	}
	return nil
}

func validateKeyID(id string) error {
	if strings.Contains(id, "/") || strings.Contains(id, "\\") || strings.Contains(id, "..") || id == "" {
		return fmt.Errorf("storage: invalid key id %q", id)
	}
	return nil
}

func (s *fileKeyStorage) Store(id string, keyPair sagecrypto.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validateKeyID(id); err != nil {
		return err
	}

	records, err := s.readAll()
	if err != nil {
		return err
	}
	raw, err := exportRaw(keyPair)
	if err != nil {
		return err
	}
	records[id] = keyRecord{Type: keyPair.Type(), Private: hex.EncodeToString(raw)}
	return s.writeAll(records)
}

func (s *fileKeyStorage) Load(id string) (sagecrypto.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validateKeyID(id); err != nil {
		return nil, err
	}
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	rec, ok := records[id]
	if !ok {
		return nil, sagecrypto.ErrKeyNotFound
	}
	raw, err := hex.DecodeString(rec.Private)
	if err != nil {
		return nil, fmt.Errorf("storage: decode key material: %w", err)
	}
	return importRaw(rec.Type, raw, id)
}

func (s *fileKeyStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validateKeyID(id); err != nil {
		return err
	}
	records, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := records[id]; !ok {
		return sagecrypto.ErrKeyNotFound
	}
	delete(records, id)
	return s.writeAll(records)
}

func (s *fileKeyStorage) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fileKeyStorage) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.readAll()
	if err != nil {
		return false
	}
	_, ok := records[id]
	return ok
}

// exportRaw extracts the raw seed/scalar bytes needed to reimport keyPair.
// Only the concrete key types this module supports are handled; anything
// else is a programming error, not a runtime condition.
func exportRaw(keyPair sagecrypto.KeyPair) ([]byte, error) {
	switch kp := keyPair.(type) {
	case interface{ PrivateKeySeed() []byte }:
		return kp.PrivateKeySeed(), nil
	default:
		return nil, fmt.Errorf("storage: key type %s does not support export", keyPair.Type())
	}
}

func importRaw(keyType sagecrypto.KeyType, raw []byte, id string) (sagecrypto.KeyPair, error) {
	switch keyType {
	case sagecrypto.KeyTypeEd25519:
		return keys.ImportEd25519Seed(raw, id)
	case sagecrypto.KeyTypeSecp256k1:
		return keys.ImportSecp256k1Scalar(raw, id)
	default:
		return nil, fmt.Errorf("%w: %s", sagecrypto.ErrInvalidKeyType, keyType)
	}
}
