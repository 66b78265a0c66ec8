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
// This file contains request and response types for the session and knowledge
// base HTTP endpoints, validated with go-playground/validator.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxMessageContentBytes caps a single message body. Checked as byte
	// length, not rune count.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxDocumentContentBytes caps a single knowledge base document.
	MaxDocumentContentBytes = 256 * 1024 // 256KB

	// MaxSearchResults caps the number of documents a search may request.
	MaxSearchResults = 50

	// DefaultSearchResults is the result count when a search request omits it.
	DefaultSearchResults = 3

	// DefaultContextTokens is the retrieval budget when a context request
	// omits it.
	DefaultContextTokens = 1000
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// gatewayValidate is the validator instance for gateway datatypes.
// Initialized in init() with custom validators.
var gatewayValidate *validator.Validate

func init() {
	gatewayValidate = validator.New()
	_ = gatewayValidate.RegisterValidation("msgbytes", validateMessageBytes)
	_ = gatewayValidate.RegisterValidation("docbytes", validateDocumentBytes)
}

// validateMessageBytes enforces MaxMessageContentBytes on a string field.
func validateMessageBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// validateDocumentBytes enforces MaxDocumentContentBytes on a string field.
func validateDocumentBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxDocumentContentBytes
}

// =============================================================================
// Session Request Types
// =============================================================================

// CreateSessionRequest is the body for POST /v1/sessions.
//
// # Fields
//
//   - UserId: Optional owning user. Used only for list filtering.
//   - Metadata: Optional opaque key/value data stored with the session.
type CreateSessionRequest struct {
	UserId   string         `json:"user_id" validate:"omitempty,max=128"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate validates the CreateSessionRequest fields.
func (r *CreateSessionRequest) Validate() error {
	return gatewayValidate.Struct(r)
}

// AppendMessageRequest is the body for POST /v1/sessions/:id/messages.
//
// # Validation
//
//   - Role: required, one of "system", "user", "assistant"
//   - Content: required, at most 32KB
type AppendMessageRequest struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required,msgbytes"`
}

// Validate validates the AppendMessageRequest fields.
func (r *AppendMessageRequest) Validate() error {
	return gatewayValidate.Struct(r)
}

// SessionCreatedResponse is returned by POST /v1/sessions. Tracked is false
// when the session store could not persist the record; the caller may still
// run the conversation without server-side history.
type SessionCreatedResponse struct {
	SessionId string `json:"session_id"`
	RoomName  string `json:"room_name"`
	CreatedAt string `json:"created_at"`
	Tracked   bool   `json:"tracked"`
}

// =============================================================================
// Knowledge Base Request Types
// =============================================================================

// AddDocumentRequest is the body for POST /v1/knowledge/documents.
//
// # Fields
//
//   - Content: Required document text, at most 256KB.
//   - Metadata: Optional properties stored alongside the document. A "title"
//     entry, when present, is used when formatting retrieval context.
type AddDocumentRequest struct {
	Content  string         `json:"content" validate:"required,docbytes"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate validates the AddDocumentRequest fields.
func (r *AddDocumentRequest) Validate() error {
	return gatewayValidate.Struct(r)
}

// SearchKnowledgeRequest is the body for POST /v1/knowledge/search.
type SearchKnowledgeRequest struct {
	Query string `json:"query" validate:"required,msgbytes"`
	TopK  int    `json:"top_k" validate:"gte=0,lte=50"`
}

// Validate validates the SearchKnowledgeRequest fields.
func (r *SearchKnowledgeRequest) Validate() error {
	return gatewayValidate.Struct(r)
}

// EnsureDefaults populates default values for optional fields.
func (r *SearchKnowledgeRequest) EnsureDefaults() {
	if r.TopK == 0 {
		r.TopK = DefaultSearchResults
	}
}

// ContextRequest is the body for POST /v1/knowledge/context. MaxTokens is a
// soft budget for the assembled context, measured in estimated tokens.
type ContextRequest struct {
	Query     string `json:"query" validate:"required,msgbytes"`
	MaxTokens int    `json:"max_tokens" validate:"gte=0,lte=100000"`
}

// Validate validates the ContextRequest fields.
func (r *ContextRequest) Validate() error {
	return gatewayValidate.Struct(r)
}

// EnsureDefaults populates default values for optional fields.
func (r *ContextRequest) EnsureDefaults() {
	if r.MaxTokens == 0 {
		r.MaxTokens = DefaultContextTokens
	}
}
