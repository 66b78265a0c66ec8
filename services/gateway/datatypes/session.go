// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the voice gateway service.
//
// This file contains the session record and message types persisted by the
// session store. Request/response types for the HTTP surface live in
// requests.go; retrieval types live in document.go.
package datatypes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxSessionMessages is the maximum number of messages retained per
	// session. Older messages are evicted first (FIFO truncation).
	MaxSessionMessages = 100

	// DefaultContextMessages is the default window size for formatted
	// conversation context.
	DefaultContextMessages = 10
)

// Message roles. These mirror the chat-completion role vocabulary.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session status values.
const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// =============================================================================
// Message
// =============================================================================

// Message is a single conversation turn stored in a session's history.
// Messages are value types: once appended they are never mutated.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current UTC time.
func NewMessage(role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// =============================================================================
// Session
// =============================================================================

// Session is a time-bounded conversational record keyed by an opaque id.
//
// # Description
//
// A session is created per conversation, accumulates user/assistant messages,
// and is considered expired once LastActivity falls further in the past than
// the store's configured TTL. LastActivity is refreshed by the session store
// on every read and every write; it is never older than CreatedAt.
//
// # Fields
//
//   - Id: Opaque unique identifier (UUID v4), immutable after creation.
//   - RoomName: Derived room identifier, immutable after creation.
//   - UserId: Optional owning user for list filtering.
//   - Metadata: Caller-supplied key/value data, opaque to the store.
//   - Messages: Ordered history, capped at MaxSessionMessages (FIFO).
//   - Status: "active" or "ended". Ending a session is a soft delete; the
//     record persists until the TTL removes it.
type Session struct {
	Id           string         `json:"session_id"`
	RoomName     string         `json:"room_name"`
	UserId       string         `json:"user_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Messages     []Message      `json:"messages"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	EndedAt      *time.Time     `json:"ended_at,omitempty"`
	Status       string         `json:"status"`
}

// NewSession creates an active session with a fresh UUID and derived room name.
// CreatedAt and LastActivity are set to the same instant.
func NewSession(userId string, metadata map[string]any) *Session {
	id := uuid.New().String()
	now := time.Now().UTC()
	return &Session{
		Id:           id,
		RoomName:     fmt.Sprintf("voice-session-%s", id),
		UserId:       userId,
		Metadata:     metadata,
		Messages:     []Message{},
		CreatedAt:    now,
		LastActivity: now,
		Status:       StatusActive,
	}
}

// Touch refreshes LastActivity to now. Called by the store on every read and
// write so the TTL window slides.
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// Append adds a message to the history and truncates to the most recent
// MaxSessionMessages entries when the cap is exceeded.
func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
	if len(s.Messages) > MaxSessionMessages {
		s.Messages = s.Messages[len(s.Messages)-MaxSessionMessages:]
	}
}

// End marks the session as ended. The record is not removed; it remains
// readable until the TTL evicts it.
func (s *Session) End(now time.Time) {
	s.Status = StatusEnded
	s.EndedAt = &now
}

// ContextWindow returns the most recent maxMessages entries, oldest first.
// A non-positive maxMessages yields DefaultContextMessages.
func (s *Session) ContextWindow(maxMessages int) []Message {
	if maxMessages <= 0 {
		maxMessages = DefaultContextMessages
	}
	if len(s.Messages) <= maxMessages {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-maxMessages:]
}

// ContextString formats the most recent maxMessages entries as
// "<role>: <content>" lines joined by newlines, oldest first.
// Returns the empty string when the session has no messages.
func (s *Session) ContextString(maxMessages int) string {
	window := s.ContextWindow(maxMessages)
	if len(window) == 0 {
		return ""
	}
	parts := make([]string, 0, len(window))
	for _, msg := range window {
		parts = append(parts, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(parts, "\n")
}
