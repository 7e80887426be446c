package workbook

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"avance/internal"
)

type stamp struct {
	modTime time.Time
	size    int64
}

type cacheKey struct {
	path  string
	sheet string
}

type cacheEntry struct {
	stamp  stamp
	loaded internal.Loaded
}

// Cache memoizes workbook loads keyed by path, sheet, modification time and
// size. A file that changes on disk is reloaded on the next access. Load
// errors are never cached.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry

	loadAll   func(path string) (internal.Loaded, error)
	loadSheet func(path, sheet string) (internal.Table, error)

	hits   int
	misses int
}

func NewCache() *Cache {
	return &Cache{
		entries:   map[cacheKey]cacheEntry{},
		loadAll:   Load,
		loadSheet: LoadSheet,
	}
}

func (c *Cache) Get(path string) (internal.Loaded, error) {
	return c.get(path, "", func(p string) (internal.Loaded, error) {
		return c.loadAll(p)
	})
}

func (c *Cache) GetSheet(path, sheet string) (internal.Table, error) {
	loaded, err := c.get(path, sheet, func(p string) (internal.Loaded, error) {
		t, err := c.loadSheet(p, sheet)
		if err != nil {
			return nil, err
		}
		return internal.SingleTable{Table: t}, nil
	})
	if err != nil {
		return internal.Table{}, err
	}
	return internal.FirstTable(loaded), nil
}

func (c *Cache) get(path, sheet string, load func(string) (internal.Loaded, error)) (internal.Loaded, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		c.Invalidate(path)
		return nil, err
	}
	current := stamp{modTime: info.ModTime(), size: info.Size()}
	key := cacheKey{path: path, sheet: sheet}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && e.stamp == current {
		c.hits++
		c.mu.Unlock()
		return e.loaded, nil
	}
	c.misses++
	c.mu.Unlock()

	loaded, err := load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{stamp: current, loaded: loaded}
	c.mu.Unlock()
	return loaded, nil
}

// Invalidate drops every cached sheet of path.
func (c *Cache) Invalidate(path string) {
	path = filepath.Clean(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.path == path {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[cacheKey]cacheEntry{}
}

type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
