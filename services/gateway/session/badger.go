// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend stores sessions in an embedded BadgerDB so they survive
// gateway restarts on a single node. Expiry uses Badger's native entry TTLs.
//
// Badger cannot extend an entry's TTL in place, so Refresh rewrites the entry
// with the same value and a fresh TTL.
type BadgerBackend struct {
	db *badger.DB
}

// badgerSlogAdapter adapts slog.Logger to BadgerDB's Logger interface.
type badgerSlogAdapter struct {
	logger *slog.Logger
}

func (l *badgerSlogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerSlogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// NewBadgerBackend opens (or creates) a Badger database at path. The caller
// must Close() the backend on shutdown.
func NewBadgerBackend(path string, logger *slog.Logger) (*BadgerBackend, error) {
	if path == "" {
		return nil, errors.New("path is required for badger session backend")
	}
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("create session database directory %s: %w", path, err)
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerSlogAdapter{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, backendErr("badger", "open", err)
	}

	slog.Info("Opened Badger session backend", "path", path)
	return &BadgerBackend{db: db}, nil
}

// NewInMemoryBadgerBackend opens a Badger instance with no disk persistence.
// Used by tests.
func NewInMemoryBadgerBackend() (*BadgerBackend, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, backendErr("badger", "open", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Name() string { return "badger" }

func (b *BadgerBackend) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return backendErr("badger", "put", err)
	}
	return nil
}

func (b *BadgerBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backendErr("badger", "get", err)
	}
	return value, true, nil
}

func (b *BadgerBackend) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	value, ok, err := b.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	return b.Put(ctx, key, value, ttl)
}

func (b *BadgerBackend) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return backendErr("badger", "delete", err)
	}
	return nil
}

func (b *BadgerBackend) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, backendErr("badger", "list-keys", err)
	}
	return keys, nil
}

func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
