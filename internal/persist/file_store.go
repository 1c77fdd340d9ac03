package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per save slot under a directory
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns the store
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the snapshot to a temp file and renames it into place
func (s *FileStore) Save(ctx context.Context, id string, save *SaveGame) error {
	if err := validSlotID(id); err != nil {
		return err
	}
	data, err := json.MarshalIndent(save, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal save %s: %w", id, err)
	}

	tmp := s.path(id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write save %s: %w", id, err)
	}
	if err := os.Rename(tmp, s.path(id)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit save %s: %w", id, err)
	}
	return nil
}

// Load reads and decodes a save slot, migrating legacy shapes
func (s *FileStore) Load(ctx context.Context, id string) (*SaveGame, error) {
	if err := validSlotID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("read save %s: %w", id, err)
	}
	save, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode save %s: %w", id, err)
	}
	return save, nil
}

// List returns every stored slot id
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// Delete removes a save slot
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := validSlotID(id); err != nil {
		return err
	}
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("delete save %s: %w", id, err)
	}
	return nil
}

func validSlotID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid save slot id %q", id)
	}
	return nil
}
