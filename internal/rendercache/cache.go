// Package rendercache stores rendered artifacts on disk keyed by a stable
// hash of (component id, parameters), with combined TTL and LRU eviction
// and a persisted JSON index.
package rendercache

import (
	"encoding/json"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xiao-ge008/cherry-studio-magic-sub000/internal/pkg/logger"
)

const indexFileName = "index.json"

// Entry is one cached artifact. The backing file lives in the cache
// directory, named by key plus extension.
type Entry struct {
	Key            string         `json:"key"`
	FileName       string         `json:"file_name"`
	JobID          string         `json:"job_id"`
	RequestID      string         `json:"request_id"`
	ComponentID    string         `json:"component_id"`
	Params         map[string]any `json:"params,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
}

// Stats summarizes cache content.
type Stats struct {
	Count  int       `json:"count"`
	Oldest time.Time `json:"oldest,omitempty"`
	Newest time.Time `json:"newest,omitempty"`
}

// Options configure a Cache.
type Options struct {
	// MaxEntries caps the entry count; LRU eviction keeps the cache at or
	// under it (default 1000).
	MaxEntries int
	// MaxAge is the TTL for entries measured from creation (default 30
	// days).
	MaxAge time.Duration
	Log    *logger.Logger
}

// PutMeta carries the provenance recorded on a cache entry.
type PutMeta struct {
	JobID       string
	RequestID   string
	ComponentID string
	Params      map[string]any
	// SourceURL is where the artifact bytes came from; its path extension
	// names the cache file (default ".png").
	SourceURL string
}

// Cache is safe for concurrent use. The index file mirrors the in-memory
// entries map 1:1; on any write error the in-memory state stays
// authoritative and the failure is logged.
type Cache struct {
	mu      sync.Mutex
	dir     string
	entries map[string]*Entry

	maxEntries int
	maxAge     time.Duration
	log        *logger.Logger

	// now is a test hook for sweep clocks.
	now func() time.Time
}

// New opens (or creates) a cache rooted at dir, loads the persisted index,
// and runs one eviction sweep. A missing or corrupt index yields an empty
// cache, never an error.
func New(dir string, opts Options) (*Cache, error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 30 * 24 * time.Hour
	}
	log := opts.Log
	if log == nil {
		log = logger.NewDefault()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	c := &Cache{
		dir:        dir,
		entries:    make(map[string]*Entry),
		maxEntries: opts.MaxEntries,
		maxAge:     opts.MaxAge,
		log:        log.WithComponent("rendercache"),
		now:        time.Now,
	}

	c.loadIndex()

	c.mu.Lock()
	c.sweepLocked()
	c.mu.Unlock()

	return c, nil
}

// Get returns the artifact path for key. A hit verifies the backing file
// still exists; if it was removed externally the entry is evicted and the
// lookup reports absent (index and file system self-heal on drift). Hits
// refresh last_accessed_at and persist the index best-effort.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}

	p := filepath.Join(c.dir, e.FileName)
	if _, err := os.Stat(p); err != nil {
		c.log.Warn("cache entry backing file missing, evicting", "key", key, "file", e.FileName)
		delete(c.entries, key)
		c.persistLocked()
		return "", false
	}

	e.LastAccessedAt = c.now()
	c.persistLocked()
	return p, true
}

// Put writes the artifact bytes to a file named by key, registers the
// entry, persists the index, and runs an eviction sweep.
func (c *Cache) Put(key string, data []byte, meta PutMeta) (string, error) {
	fileName := key + extFromURL(meta.SourceURL)
	p := filepath.Join(c.dir, fileName)

	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}

	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Key:            key,
		FileName:       fileName,
		JobID:          meta.JobID,
		RequestID:      meta.RequestID,
		ComponentID:    meta.ComponentID,
		Params:         meta.Params,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	c.persistLocked()
	c.sweepLocked()

	return p, nil
}

// PurgeComponent removes every entry produced by the given component and
// returns how many were removed.
func (c *Cache) PurgeComponent(componentID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.ComponentID != componentID {
			continue
		}
		c.removeLocked(key)
		removed++
	}
	if removed > 0 {
		c.persistLocked()
	}
	return removed
}

// Clear empties the cache directory and the index.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		c.removeLocked(key)
	}
	c.persistLocked()
}

// Stats reports entry count and creation-time bounds.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Count: len(c.entries)}
	for _, e := range c.entries {
		if s.Oldest.IsZero() || e.CreatedAt.Before(s.Oldest) {
			s.Oldest = e.CreatedAt
		}
		if e.CreatedAt.After(s.Newest) {
			s.Newest = e.CreatedAt
		}
	}
	return s
}

// sweepLocked applies the eviction policy: first a TTL sweep on created_at,
// then an LRU sweep on last_accessed_at if the count still exceeds the cap.
func (c *Cache) sweepLocked() {
	now := c.now()

	for key, e := range c.entries {
		if now.Sub(e.CreatedAt) > c.maxAge {
			c.log.Debug("ttl eviction", "key", key, "age", now.Sub(e.CreatedAt).String())
			c.removeLocked(key)
		}
	}

	if len(c.entries) > c.maxEntries {
		byAccess := make([]*Entry, 0, len(c.entries))
		for _, e := range c.entries {
			byAccess = append(byAccess, e)
		}
		sort.Slice(byAccess, func(i, j int) bool {
			return byAccess[i].LastAccessedAt.Before(byAccess[j].LastAccessedAt)
		})
		for _, e := range byAccess[:len(c.entries)-c.maxEntries] {
			c.log.Debug("lru eviction", "key", e.Key)
			c.removeLocked(e.Key)
		}
	}

	c.persistLocked()
}

// removeLocked deletes the backing file, then the index entry. A failed
// file delete is logged but never blocks index cleanup; correctness favors
// the index over leftover files.
func (c *Cache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if err := os.Remove(filepath.Join(c.dir, e.FileName)); err != nil && !os.IsNotExist(err) {
		c.log.Warn("failed to delete cache file", "key", key, "error", err.Error())
	}
	delete(c.entries, key)
}

// loadIndex reads the persisted index. Any load or parse failure yields an
// empty cache.
func (c *Cache) loadIndex() {
	b, err := os.ReadFile(filepath.Join(c.dir, indexFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("cache index unreadable, starting empty", "error", err.Error())
		}
		return
	}

	var entries map[string]*Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		c.log.Warn("cache index corrupt, starting empty", "error", err.Error())
		return
	}
	c.entries = entries
	if c.entries == nil {
		c.entries = make(map[string]*Entry)
	}
}

// persistLocked writes the index best-effort; failures are logged and the
// in-memory index remains authoritative for this process.
func (c *Cache) persistLocked() {
	b, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		c.log.Warn("failed to encode cache index", "error", err.Error())
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, indexFileName), b, 0o644); err != nil {
		c.log.Warn("failed to persist cache index", "error", err.Error())
	}
}

// extFromURL infers the cache file extension from the source URL,
// defaulting to ".png". Render servers expose outputs both as direct paths
// and as view URLs carrying the file name in a query parameter.
func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".png"
	}

	name := u.Path
	if fn := u.Query().Get("filename"); fn != "" {
		name = fn
	}

	ext := strings.ToLower(path.Ext(name))
	if ext == "" || len(ext) > 8 {
		return ".png"
	}
	return ext
}
