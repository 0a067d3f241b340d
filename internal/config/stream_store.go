package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// StreamStore persists one TOML document per stream under a directory, the
// "stream configuration collection" of spec section 6.4 — a document store
// stood in for with the filesystem since persistence itself is an external
// collaborator (spec section 1) and this package's only job is to give
// cmd/engine somewhere real to read/write StreamConfig documents from.
type StreamStore struct {
	dir string
}

// NewStreamStore creates a store rooted at dir. The directory is created
// lazily on first Save.
func NewStreamStore(dir string) *StreamStore {
	return &StreamStore{dir: dir}
}

func (s *StreamStore) path(streamID string) string {
	return filepath.Join(s.dir, streamID+".toml")
}

// LoadAll reads every persisted stream document in the store's directory.
// A missing directory is treated as an empty collection, not an error.
func (s *StreamStore) LoadAll() ([]StreamConfig, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading stream config dir: %w", err)
	}

	var cfgs []StreamConfig
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		var cfg StreamConfig
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("validating %s: %w", entry.Name(), err)
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

// Save writes (or overwrites) one stream's persisted document atomically,
// normalizing patrol bounds per Validate's invariant before it hits disk.
func (s *StreamStore) Save(cfg StreamConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating stream config: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating stream config dir: %w", err)
	}

	tmp := s.path(cfg.StreamID) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating stream config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encoding stream config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing stream config file: %w", err)
	}
	return os.Rename(tmp, s.path(cfg.StreamID))
}

// Delete removes a stream's persisted document. Removing an already-absent
// document is not an error.
func (s *StreamStore) Delete(streamID string) error {
	if err := os.Remove(s.path(streamID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting stream config file: %w", err)
	}
	return nil
}
