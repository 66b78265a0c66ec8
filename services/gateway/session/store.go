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
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/datatypes"
)

var tracer = otel.Tracer("aleutian.gateway.session")

// =============================================================================
// Configuration
// =============================================================================

const (
	// DefaultSessionTTL is the inactivity window before a session expires.
	DefaultSessionTTL = 3600 * time.Second

	// DefaultKeyPrefix namespaces session keys in shared backends.
	DefaultKeyPrefix = "session:"
)

// StoreConfig holds tunables for the session store.
type StoreConfig struct {
	// TTL is the sliding inactivity window. Every read and write restarts it.
	TTL time.Duration

	// KeyPrefix is prepended to session ids to form backend keys.
	KeyPrefix string
}

// DefaultStoreConfig returns production defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		TTL:       DefaultSessionTTL,
		KeyPrefix: DefaultKeyPrefix,
	}
}

func (c *StoreConfig) ensureDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultSessionTTL
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
}

// =============================================================================
// Store
// =============================================================================

// Store manages session records on top of a Backend.
//
// # Description
//
// All mutating operations return a boolean rather than an error: callers
// treat a false as "session unavailable" and degrade gracefully, because a
// failed session write must never take down a live voice conversation.
// Failures are logged with the backend error.
//
// # Concurrency
//
// Append and update are read-modify-write sequences without cross-instance
// locking. Two concurrent writers to the same session can lose one writer's
// message on shared backends. Acceptable here: a session has a single
// conversational client.
type Store struct {
	backend Backend
	config  StoreConfig
}

// NewStore creates a session store over the given backend. Zero-value config
// fields fall back to defaults.
func NewStore(backend Backend, config StoreConfig) *Store {
	config.ensureDefaults()
	return &Store{backend: backend, config: config}
}

// BackendName reports which backend the store runs on ("redis", "badger",
// "memory").
func (s *Store) BackendName() string { return s.backend.Name() }

// TTL reports the configured inactivity window.
func (s *Store) TTL() time.Duration { return s.config.TTL }

func (s *Store) key(sessionId string) string {
	return s.config.KeyPrefix + sessionId
}

// Create persists a new session record. CreatedAt and LastActivity are
// stamped to the same instant. Returns false when the backend rejects the
// write; the caller may continue without session tracking.
func (s *Store) Create(ctx context.Context, session *datatypes.Session) bool {
	ctx, span := tracer.Start(ctx, "session.Create")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", session.Id))

	now := time.Now().UTC()
	session.CreatedAt = now
	session.LastActivity = now

	if !s.write(ctx, session) {
		return false
	}
	slog.Info("Created session", "sessionId", session.Id, "backend", s.backend.Name())
	return true
}

// Get fetches a session by id. The read refreshes LastActivity and restarts
// the TTL window, so an active conversation never lapses. Returns false for
// absent, expired, or undecodable records.
//
// The touch rewrites the whole record rather than calling Backend.Refresh:
// LastActivity lives inside the serialized session, so a TTL-only refresh
// would leave the stored timestamp stale. Refresh remains on the interface
// for callers that track activity outside the value.
func (s *Store) Get(ctx context.Context, sessionId string) (*datatypes.Session, bool) {
	ctx, span := tracer.Start(ctx, "session.Get")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionId))

	value, ok, err := s.backend.Get(ctx, s.key(sessionId))
	if err != nil {
		slog.Error("Session read failed", "sessionId", sessionId, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var session datatypes.Session
	if err := json.Unmarshal(value, &session); err != nil {
		// A record we cannot decode is useless; drop it so it does not
		// poison every later read.
		slog.Error("Dropping malformed session record", "sessionId", sessionId, "error", err)
		_ = s.backend.Delete(ctx, s.key(sessionId))
		return nil, false
	}

	session.Touch(time.Now().UTC())
	if !s.write(ctx, &session) {
		// The refresh is best effort; the read itself succeeded.
		slog.Warn("Failed to refresh session activity", "sessionId", sessionId)
	}
	return &session, true
}

// Update replaces an existing session record. Returns false when the session
// does not exist (it may have expired) or the write fails. Create and Update
// are deliberately asymmetric: creation always proceeds, updates require the
// record to still be live.
func (s *Store) Update(ctx context.Context, session *datatypes.Session) bool {
	ctx, span := tracer.Start(ctx, "session.Update")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", session.Id))

	_, ok, err := s.backend.Get(ctx, s.key(session.Id))
	if err != nil {
		slog.Error("Session update precheck failed", "sessionId", session.Id, "error", err)
		return false
	}
	if !ok {
		return false
	}

	session.Touch(time.Now().UTC())
	return s.write(ctx, session)
}

// Delete removes a session. Idempotent: deleting an absent session succeeds.
func (s *Store) Delete(ctx context.Context, sessionId string) bool {
	ctx, span := tracer.Start(ctx, "session.Delete")
	defer span.End()

	if err := s.backend.Delete(ctx, s.key(sessionId)); err != nil {
		slog.Error("Session delete failed", "sessionId", sessionId, "error", err)
		return false
	}
	return true
}

// End marks a session ended without deleting it. The record remains readable
// until the TTL evicts it. Returns false when the session no longer exists.
func (s *Store) End(ctx context.Context, sessionId string) (*datatypes.Session, bool) {
	session, ok := s.Get(ctx, sessionId)
	if !ok {
		return nil, false
	}
	session.End(time.Now().UTC())
	if !s.Update(ctx, session) {
		return nil, false
	}
	return session, true
}

// AppendMessage adds a message to a session's history, truncating to the
// retention cap. Returns false when the session does not exist or the write
// fails.
//
// This is a read-modify-write without locking; see the Store doc comment.
func (s *Store) AppendMessage(ctx context.Context, sessionId string, msg datatypes.Message) bool {
	ctx, span := tracer.Start(ctx, "session.AppendMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sessionId),
		attribute.String("message.role", msg.Role),
	)

	session, ok := s.Get(ctx, sessionId)
	if !ok {
		return false
	}
	session.Append(msg)
	session.Touch(time.Now().UTC())
	return s.write(ctx, session)
}

// Context returns the session's recent history formatted as "role: content"
// lines, oldest first. Returns ok=false when the session does not exist; an
// existing session with no messages yields ("", true).
func (s *Store) Context(ctx context.Context, sessionId string, maxMessages int) (string, bool) {
	session, ok := s.Get(ctx, sessionId)
	if !ok {
		return "", false
	}
	return session.ContextString(maxMessages), true
}

// List returns all live sessions, optionally filtered by owning user.
// Records that fail to decode are skipped.
func (s *Store) List(ctx context.Context, userId string) []*datatypes.Session {
	ctx, span := tracer.Start(ctx, "session.List")
	defer span.End()

	keys, err := s.backend.ListKeys(ctx, s.config.KeyPrefix)
	if err != nil {
		slog.Error("Session list failed", "error", err)
		return nil
	}

	sessions := make([]*datatypes.Session, 0, len(keys))
	for _, key := range keys {
		value, ok, err := s.backend.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var session datatypes.Session
		if err := json.Unmarshal(value, &session); err != nil {
			slog.Warn("Skipping malformed session record", "key", key, "error", err)
			continue
		}
		if userId != "" && session.UserId != userId {
			continue
		}
		sessions = append(sessions, &session)
	}
	span.SetAttributes(attribute.Int("session.count", len(sessions)))
	return sessions
}

// write marshals and persists a session with the configured TTL.
func (s *Store) write(ctx context.Context, session *datatypes.Session) bool {
	value, err := json.Marshal(session)
	if err != nil {
		slog.Error("Session marshal failed", "sessionId", session.Id, "error", err)
		return false
	}
	if err := s.backend.Put(ctx, s.key(session.Id), value, s.config.TTL); err != nil {
		slog.Error("Session write failed", "sessionId", session.Id, "error", err)
		return false
	}
	return true
}
