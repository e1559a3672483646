// Package cache memoizes extraction results by blob content.
//
// Results live in two layers: a bounded in-memory otter cache in front of an
// optional bbolt file that survives across runs. Disk errors are logged and
// treated as misses; the cache never changes what extraction returns.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/code-pairs/internal/pairs"
	bolt "go.etcd.io/bbolt"
)

// SchemaVersion is mixed into every key. Bump it when Record extraction
// changes so stale disk entries are never served.
const SchemaVersion = "1"

var bucketPairs = []byte("pairs")

// Cache stores record sequences keyed by content hash.
type Cache struct {
	mem    otter.Cache[string, []pairs.Record]
	db     *bolt.DB
	logger *slog.Logger
}

// Open creates a cache holding up to size entries in memory. A non-empty path
// adds a bbolt file layer at that location.
func Open(size int, path string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mem, err := otter.MustBuilder[string, []pairs.Record](size).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build memory cache: %w", err)
	}

	c := &Cache{mem: mem, logger: logger}
	if path == "" {
		return c, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		mem.Close()
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		mem.Close()
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPairs)
		return err
	}); err != nil {
		db.Close()
		mem.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	c.db = db
	return c, nil
}

// Key returns the cache key for a blob extracted with the given depth limit.
func Key(blob string, maxDepth int) string {
	h := sha256.New()
	h.Write([]byte(SchemaVersion))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(maxDepth)))
	h.Write([]byte{0})
	h.Write([]byte(blob))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached records for key. The memory layer is consulted
// first; disk hits are promoted into memory.
func (c *Cache) Get(key string) ([]pairs.Record, bool) {
	if records, ok := c.mem.Get(key); ok {
		return records, true
	}
	if c.db == nil {
		return nil, false
	}

	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketPairs).Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("cache read failed", "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	records := []pairs.Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Warn("cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	c.mem.Set(key, records)
	return records, true
}

// Put stores records under key in both layers.
func (c *Cache) Put(key string, records []pairs.Record) {
	if records == nil {
		records = []pairs.Record{}
	}
	c.mem.Set(key, records)
	if c.db == nil {
		return
	}

	data, err := json.Marshal(records)
	if err != nil {
		c.logger.Warn("cache encode failed", "error", err)
		return
	}
	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPairs).Put([]byte(key), data)
	}); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}

// Len returns the number of entries in the disk layer, or the memory layer
// when there is no disk file.
func (c *Cache) Len() int {
	if c.db == nil {
		return c.mem.Size()
	}
	n := 0
	_ = c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketPairs).Stats().KeyN
		return nil
	})
	return n
}

// Close releases both layers.
func (c *Cache) Close() error {
	c.mem.Close()
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
