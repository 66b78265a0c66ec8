// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

// TestNewSession verifies the initial state of a freshly created session.
func TestNewSession(t *testing.T) {
	s := NewSession("user-1", map[string]any{"channel": "phone"})

	if s.Id == "" {
		t.Fatal("Expected a generated session id")
	}
	if s.RoomName != "voice-session-"+s.Id {
		t.Errorf("Room name mismatch: got %q", s.RoomName)
	}
	if s.Status != StatusActive {
		t.Errorf("Expected status %q, got %q", StatusActive, s.Status)
	}
	if !s.LastActivity.Equal(s.CreatedAt) {
		t.Errorf("LastActivity %v should equal CreatedAt %v on creation", s.LastActivity, s.CreatedAt)
	}
	if len(s.Messages) != 0 {
		t.Errorf("Expected empty history, got %d messages", len(s.Messages))
	}
}

// TestSession_Append tests history growth and the retention cap.
func TestSession_Append(t *testing.T) {
	t.Run("retains order below the cap", func(t *testing.T) {
		s := NewSession("", nil)
		for i := 0; i < 10; i++ {
			s.Append(NewMessage(RoleUser, fmt.Sprintf("msg-%d", i)))
		}
		if len(s.Messages) != 10 {
			t.Fatalf("Expected 10 messages, got %d", len(s.Messages))
		}
		if s.Messages[0].Content != "msg-0" || s.Messages[9].Content != "msg-9" {
			t.Error("Messages out of order")
		}
	})

	t.Run("truncates oldest first beyond the cap", func(t *testing.T) {
		s := NewSession("", nil)
		total := MaxSessionMessages + 20
		for i := 0; i < total; i++ {
			s.Append(NewMessage(RoleUser, fmt.Sprintf("msg-%d", i)))
		}
		if len(s.Messages) != MaxSessionMessages {
			t.Fatalf("Expected %d messages, got %d", MaxSessionMessages, len(s.Messages))
		}
		wantFirst := fmt.Sprintf("msg-%d", total-MaxSessionMessages)
		if s.Messages[0].Content != wantFirst {
			t.Errorf("Expected oldest retained message %q, got %q", wantFirst, s.Messages[0].Content)
		}
		wantLast := fmt.Sprintf("msg-%d", total-1)
		if s.Messages[len(s.Messages)-1].Content != wantLast {
			t.Errorf("Expected newest message %q, got %q", wantLast, s.Messages[len(s.Messages)-1].Content)
		}
	})
}

// TestSession_ContextString tests conversation formatting.
func TestSession_ContextString(t *testing.T) {
	t.Run("formats role-prefixed lines", func(t *testing.T) {
		s := NewSession("", nil)
		s.Append(NewMessage(RoleUser, "hi"))
		s.Append(NewMessage(RoleAssistant, "hello"))

		got := s.ContextString(10)
		want := "user: hi\nassistant: hello"
		if got != want {
			t.Errorf("Context mismatch:\ngot:  %q\nwant: %q", got, want)
		}
	})

	t.Run("empty history yields empty string", func(t *testing.T) {
		s := NewSession("", nil)
		if got := s.ContextString(10); got != "" {
			t.Errorf("Expected empty context, got %q", got)
		}
	})

	t.Run("windows to the most recent messages", func(t *testing.T) {
		s := NewSession("", nil)
		for i := 0; i < 20; i++ {
			s.Append(NewMessage(RoleUser, fmt.Sprintf("msg-%d", i)))
		}
		got := s.ContextString(5)
		lines := strings.Split(got, "\n")
		if len(lines) != 5 {
			t.Fatalf("Expected 5 lines, got %d", len(lines))
		}
		if lines[0] != "user: msg-15" {
			t.Errorf("Expected window to start at msg-15, got %q", lines[0])
		}
	})

	t.Run("non-positive window uses the default", func(t *testing.T) {
		s := NewSession("", nil)
		for i := 0; i < 20; i++ {
			s.Append(NewMessage(RoleUser, fmt.Sprintf("msg-%d", i)))
		}
		got := s.ContextString(0)
		if lines := strings.Split(got, "\n"); len(lines) != DefaultContextMessages {
			t.Errorf("Expected %d lines, got %d", DefaultContextMessages, len(lines))
		}
	})
}

// TestSession_End verifies ending is a soft state change.
func TestSession_End(t *testing.T) {
	s := NewSession("", nil)
	now := time.Now().UTC()
	s.End(now)

	if s.Status != StatusEnded {
		t.Errorf("Expected status %q, got %q", StatusEnded, s.Status)
	}
	if s.EndedAt == nil || !s.EndedAt.Equal(now) {
		t.Errorf("Expected EndedAt %v, got %v", now, s.EndedAt)
	}
}

// TestSession_JSONRoundTrip verifies a record survives the store codec.
func TestSession_JSONRoundTrip(t *testing.T) {
	s := NewSession("user-1", map[string]any{"title": "support call"})
	s.Append(NewMessage(RoleUser, "hi"))

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded Session
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded.Id != s.Id {
		t.Errorf("Id mismatch: got %q, want %q", decoded.Id, s.Id)
	}
	if len(decoded.Messages) != 1 || decoded.Messages[0].Content != "hi" {
		t.Errorf("Messages did not survive round trip: %+v", decoded.Messages)
	}
	if decoded.Status != StatusActive {
		t.Errorf("Status mismatch: got %q", decoded.Status)
	}
}

// TestRetrievedDocument_Title tests the untitled fallback.
func TestRetrievedDocument_Title(t *testing.T) {
	cases := []struct {
		name     string
		metadata map[string]any
		want     string
	}{
		{"with title", map[string]any{"title": "Returns Policy"}, "Returns Policy"},
		{"missing title", map[string]any{"category": "faq"}, "Untitled"},
		{"nil metadata", nil, "Untitled"},
		{"non-string title", map[string]any{"title": 42}, "Untitled"},
		{"empty title", map[string]any{"title": ""}, "Untitled"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := RetrievedDocument{Metadata: tc.metadata}
			if got := doc.Title(); got != tc.want {
				t.Errorf("Title() = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestRequestValidation covers the request validators.
func TestRequestValidation(t *testing.T) {
	t.Run("append message requires a known role", func(t *testing.T) {
		req := AppendMessageRequest{Role: "narrator", Content: "hi"}
		if err := req.Validate(); err == nil {
			t.Error("Expected validation error for unknown role")
		}
	})

	t.Run("append message rejects oversized content", func(t *testing.T) {
		req := AppendMessageRequest{Role: RoleUser, Content: strings.Repeat("a", MaxMessageContentBytes+1)}
		if err := req.Validate(); err == nil {
			t.Error("Expected validation error for oversized content")
		}
	})

	t.Run("valid append message passes", func(t *testing.T) {
		req := AppendMessageRequest{Role: RoleUser, Content: "hi"}
		if err := req.Validate(); err != nil {
			t.Errorf("Unexpected validation error: %v", err)
		}
	})

	t.Run("search defaults top_k", func(t *testing.T) {
		req := SearchKnowledgeRequest{Query: "refunds"}
		req.EnsureDefaults()
		if req.TopK != DefaultSearchResults {
			t.Errorf("Expected TopK %d, got %d", DefaultSearchResults, req.TopK)
		}
	})

	t.Run("context request defaults max_tokens", func(t *testing.T) {
		req := ContextRequest{Query: "refunds"}
		req.EnsureDefaults()
		if req.MaxTokens != DefaultContextTokens {
			t.Errorf("Expected MaxTokens %d, got %d", DefaultContextTokens, req.MaxTokens)
		}
	})
}
