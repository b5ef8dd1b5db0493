package learning

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

// JSONFileStore persists a Snapshot to a single JSON file using the
// temp-write/fsync/rename sequence spec.md §6 requires for Knowledge Base
// persistence, the same pattern persistence.ManifoldStore uses for
// sentinel.json.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore builds a Store backed by the JSON file at path.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Load reads the snapshot from disk. A missing file is not an error: it
// yields a nil snapshot so callers start from empty state.
func (s *JSONFileStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save writes snap atomically: serialize to a temp file in the same
// directory, fsync it, then rename over the destination so a concurrent
// reader never observes a partial write.
func (s *JSONFileStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, ".knowledge-base-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}
