// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache keeps finished indexing results in BadgerDB keyed by corpus
// fingerprint and engine configuration, so re-indexing an unchanged corpus
// is a lookup.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/pdiddy/integrity-engine/pkg/types"
)

const resultPrefix = "result:"

// Options configures a Cache.
type Options struct {
	// Dir is the BadgerDB directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the cache in memory only.
	InMemory bool
}

// Cache is a persistent result cache. It is safe for concurrent use.
type Cache struct {
	db *badger.DB
}

// Open opens or creates the cache.
func Open(opts Options) (*Cache, error) {
	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts = bopts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithBlockCacheSize(8 << 20).
		WithIndexCacheSize(8 << 20)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening result cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key returns the cache key for a corpus fingerprint under cfg.
func Key(fingerprint string, cfg types.EngineConfig) []byte {
	data, _ := json.Marshal(cfg)
	sum := sha256.Sum256(data)
	return []byte(resultPrefix + fingerprint + ":" + hex.EncodeToString(sum[:8]))
}

// Get returns the cached result for fingerprint under cfg. The boolean is
// false on a miss.
func (c *Cache) Get(fingerprint string, cfg types.EngineConfig) (*types.IndexingResult, bool, error) {
	var result *types.IndexingResult
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(Key(fingerprint, cfg))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var r types.IndexingResult
			if err := json.Unmarshal(val, &r); err != nil {
				return fmt.Errorf("decoding cached result: %w", err)
			}
			result = &r
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading result cache: %w", err)
	}
	return result, true, nil
}

// Put stores result under its fingerprint and cfg.
func (c *Cache) Put(result *types.IndexingResult, cfg types.EngineConfig) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(Key(result.Fingerprint, cfg), data)
	})
	if err != nil {
		return fmt.Errorf("writing result cache: %w", err)
	}
	return nil
}

// Len returns the number of cached results.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(resultPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
