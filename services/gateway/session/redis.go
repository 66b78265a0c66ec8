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
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 3 * time.Second

// RedisBackend stores sessions in Redis so multiple gateway instances share
// one session space. Expiry is delegated to Redis key TTLs (SET with EX);
// reads slide the window with EXPIRE.
type RedisBackend struct {
	client *redis.Client
	// slidingTTL is applied on every successful Get so an actively-read
	// session never lapses mid-conversation.
	slidingTTL time.Duration
}

// NewRedisBackend connects to Redis at url (redis://host:port/db) and probes
// the connection with PING. A failed probe returns an error so the caller can
// fall back to a local backend.
func NewRedisBackend(url string, slidingTTL time.Duration) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, backendErr("redis", "parse-url", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, backendErr("redis", "ping", err)
	}

	slog.Info("Connected to Redis session backend", "url", url)
	return &RedisBackend{client: client, slidingTTL: slidingTTL}, nil
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return backendErr("redis", "put", err)
	}
	return nil
}

// Get reads a key and, when found, resets its expiry to the sliding TTL.
// The EXPIRE is best effort; a failed refresh does not fail the read.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backendErr("redis", "get", err)
	}
	if b.slidingTTL > 0 {
		if err := b.client.Expire(ctx, key, b.slidingTTL).Err(); err != nil {
			slog.Warn("Failed to slide session expiry", "key", key, "error", err)
		}
	}
	return value, true, nil
}

func (b *RedisBackend) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	if err := b.client.Expire(ctx, key, ttl).Err(); err != nil {
		return backendErr("redis", "refresh", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return backendErr("redis", "delete", err)
	}
	return nil
}

// ListKeys iterates with SCAN rather than KEYS so large session spaces do not
// block the server.
func (b *RedisBackend) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, backendErr("redis", "list-keys", err)
	}
	return keys, nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
