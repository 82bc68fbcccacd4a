package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const cacheKeyPrefix = "completion:"

// CachedCompleter serves repeated completion requests from a badger store. Only successful
// completions are stored.
type CachedCompleter struct {
	next Completer
	db   *badger.DB
	ttl  time.Duration
	log  *slog.Logger
}

// OpenCachedCompleter opens (or creates) the store in dir. An empty dir keeps the cache in memory.
// ttl <= 0 keeps entries forever.
func OpenCachedCompleter(next Completer, dir string, ttl time.Duration, log *slog.Logger) (*CachedCompleter, error) {
	if log == nil {
		log = slog.Default()
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open completion cache: %w", err)
	}
	return &CachedCompleter{next: next, db: db, ttl: ttl, log: log}, nil
}

func (c *CachedCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	key, err := CacheKey(req)
	if err != nil {
		return "", err
	}

	if hit, found, err := c.get(key); err != nil {
		c.log.Warn("llm.cache.read_error", "error", err)
	} else if found {
		c.log.Debug("llm.cache.hit", "key", key[len(cacheKeyPrefix):len(cacheKeyPrefix)+12])
		return hit, nil
	}

	content, err := c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if err := c.put(key, content); err != nil {
		c.log.Warn("llm.cache.write_error", "error", err)
	}
	return content, nil
}

func (c *CachedCompleter) get(key string) (string, bool, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(val), true, nil
}

func (c *CachedCompleter) put(key, content string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), []byte(content))
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Close releases the store.
func (c *CachedCompleter) Close() error {
	return c.db.Close()
}

// CacheKey hashes everything that influences the completion.
func CacheKey(req CompletionRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return cacheKeyPrefix + hex.EncodeToString(sum[:]), nil
}
