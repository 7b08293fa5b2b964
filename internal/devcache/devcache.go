// Package devcache stores fetched records between development runs so a
// report can be regenerated without calling the API again.
package devcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/TobiSchelling/auditreports/internal/audit"
)

// FileName is the cache file inside the output directory.
const FileName = "dev-cache.json"

// Entry kinds.
const (
	KindRecord  = "record"
	KindDataset = "dataset"
)

// Entry is the single cached payload.
type Entry struct {
	Kind    string         `json:"kind"`
	Key     string         `json:"key"`
	Records []audit.Record `json:"records"`
}

// Cache is a one-entry JSON file cache.
type Cache struct {
	path string
}

// New returns the cache stored in outputDir.
func New(outputDir string) *Cache {
	return &Cache{path: filepath.Join(outputDir, FileName)}
}

// Path returns the cache file location.
func (c *Cache) Path() string { return c.path }

// Load returns the cached entry, or nil when there is none. A corrupt file is
// reported as an error.
func (c *Cache) Load() (*Entry, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parsing cache %s: %w", c.path, err)
	}
	return &e, nil
}

// Record returns the cached record with the given id, if the cache holds it.
func (c *Cache) Record(id string) (audit.Record, bool, error) {
	e, err := c.Load()
	if err != nil || e == nil {
		return audit.Record{}, false, err
	}
	if e.Kind == KindRecord && e.Key != id {
		return audit.Record{}, false, nil
	}
	for _, r := range e.Records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return audit.Record{}, false, nil
}

// StoreRecord replaces the cache with a single record.
func (c *Cache) StoreRecord(r audit.Record) error {
	return c.store(Entry{Kind: KindRecord, Key: r.ID, Records: []audit.Record{r}})
}

// StoreDataset replaces the cache with a full record set.
func (c *Cache) StoreDataset(key string, records []audit.Record) error {
	return c.store(Entry{Kind: KindDataset, Key: key, Records: records})
}

// Clear removes the cache file.
func (c *Cache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Cache) store(e Entry) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return os.Rename(tmp, c.path)
}
