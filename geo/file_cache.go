package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"auto_sniper/models"
)

type fileEntry struct {
	Coordinates models.Coordinates `json:"coordinates"`
}

// FileCache keeps the coordinate cache in a single JSON file of the form
// {"place": {"coordinates": {"lat": .., "lon": ..}}}. The file is read on
// first use and rewritten after every Set.
type FileCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]fileEntry
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (c *FileCache) Get(_ context.Context, place string) (models.Coordinates, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return models.Coordinates{}, false, err
	}
	e, ok := c.entries[place]
	return e.Coordinates, ok, nil
}

func (c *FileCache) Set(_ context.Context, place string, coords models.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.load(); err != nil {
		return err
	}
	c.entries[place] = fileEntry{Coordinates: coords}
	return c.persist()
}

func (c *FileCache) Flush(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		return nil
	}
	return c.persist()
}

func (c *FileCache) load() error {
	if c.entries != nil {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.entries = make(map[string]fileEntry)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read coords cache: %w", err)
	}
	entries := make(map[string]fileEntry)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parse coords cache %s: %w", c.path, err)
		}
	}
	c.entries = entries
	return nil
}

func (c *FileCache) persist() error {
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
