// Leadfeed - Signal-Driven Lead Scoring and Feed Projection
// Copyright 2026 R. Venner (revlumen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/revlumen/leadfeed

package packs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/revlumen/leadfeed/internal/logging"
)

// Store is a process-wide read-through cache of packs. The pack directory is
// read once on first access and served from memory afterwards; Reset drops
// the cache so the next access reloads from disk.
//
// The built-in default pack is always present, even with an empty directory.
type Store struct {
	dir string

	mu    sync.RWMutex
	packs map[string]*Pack // nil until first load
}

// NewStore creates a pack store reading YAML files from dir. An empty dir
// serves only the built-in default pack.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Get returns the pack with the given identifier, or ErrPackNotFound.
func (s *Store) Get(id string) (*Pack, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	pack, ok := s.packs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackNotFound, id)
	}
	return pack, nil
}

// Default returns the built-in default pack.
func (s *Store) Default() *Pack {
	pack, err := s.Get(DefaultPackID)
	if err != nil {
		// The default pack is always registered by load; reaching this
		// means the directory itself was unreadable.
		return defaultPack()
	}
	return pack
}

// IDs returns all loaded pack identifiers, unordered.
func (s *Store) IDs() ([]string, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.packs))
	for id := range s.packs {
		ids = append(ids, id)
	}
	return ids, nil
}

// Reset drops the cache. The next access reloads the pack directory.
// Exposed for tests and for operational reload without a restart.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packs = nil
}

// ensureLoaded populates the cache on first access.
func (s *Store) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.packs != nil
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.packs != nil {
		return nil
	}

	packs, err := loadDir(s.dir)
	if err != nil {
		return err
	}
	s.packs = packs
	return nil
}

// loadDir reads every *.yaml/*.yml file in dir as one pack definition and
// registers the built-in default pack.
func loadDir(dir string) (map[string]*Pack, error) {
	packs := map[string]*Pack{DefaultPackID: defaultPack()}

	if dir == "" {
		return packs, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pack directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		pack, err := loadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if _, dup := packs[pack.ID]; dup && pack.ID != DefaultPackID {
			return nil, fmt.Errorf("duplicate pack id %q in %s", pack.ID, name)
		}
		packs[pack.ID] = pack

		logging.Debug().Str("pack", pack.ID).Int("version", pack.Version).Str("file", name).Msg("Loaded pack")
	}

	return packs, nil
}

// loadFile parses a single pack YAML file.
func loadFile(path string) (*Pack, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse pack file %s: %w", path, err)
	}

	pack := &Pack{}
	if err := k.Unmarshal("", pack); err != nil {
		return nil, fmt.Errorf("unmarshal pack file %s: %w", path, err)
	}
	if pack.ID == "" {
		return nil, fmt.Errorf("pack file %s: missing id", path)
	}
	return pack, nil
}
