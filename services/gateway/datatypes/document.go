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

	"github.com/weaviate/weaviate/entities/models"
)

// =============================================================================
// Retrieved Documents
// =============================================================================

// RetrievedDocument is a knowledge base document returned from similarity
// search, ordered nearest first by the caller.
//
// # Fields
//
//   - Id: Store-assigned object id.
//   - Content: The document text.
//   - Metadata: Stored properties (title, category, added_at).
//   - Distance: Vector distance from the query, when the store reports one.
//     Nil when the backend omits it.
type RetrievedDocument struct {
	Id       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Distance *float64       `json:"distance,omitempty"`
}

// Title returns the document's title from metadata, or "Untitled" when the
// title is missing or not a string.
func (d *RetrievedDocument) Title() string {
	if title, ok := d.Metadata["title"].(string); ok && title != "" {
		return title
	}
	return "Untitled"
}

// =============================================================================
// Generic GraphQL Response Parser
// =============================================================================

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// Encapsulates the marshal/unmarshal pattern required to convert Weaviate's
// dynamic response (map[string]models.JSONObject) into a strongly-typed Go
// struct. The target type T must have json tags matching the expected
// response shape.
//
// # Limitations
//
//   - Type mismatches result in zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// =============================================================================
// Query Response Types
// =============================================================================

// KnowledgeDocumentQueryResponse represents the response from querying the
// KnowledgeDocument class.
type KnowledgeDocumentQueryResponse struct {
	Get struct {
		KnowledgeDocument []KnowledgeDocumentResult `json:"KnowledgeDocument"`
	} `json:"Get"`
}

// KnowledgeDocumentResult represents a single knowledge document from a query.
type KnowledgeDocumentResult struct {
	Content    string  `json:"content"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	AddedAt    float64 `json:"added_at"`
	Additional struct {
		ID       string   `json:"id"`
		Distance *float64 `json:"distance"`
	} `json:"_additional"`
}

// ToRetrievedDocument converts a query result into the retrieval type used by
// the context assembler.
func (r *KnowledgeDocumentResult) ToRetrievedDocument() RetrievedDocument {
	metadata := map[string]any{
		"added_at": r.AddedAt,
	}
	if r.Title != "" {
		metadata["title"] = r.Title
	}
	if r.Category != "" {
		metadata["category"] = r.Category
	}
	return RetrievedDocument{
		Id:       r.Additional.ID,
		Content:  r.Content,
		Metadata: metadata,
		Distance: r.Additional.Distance,
	}
}

// KnowledgeDocumentProperties represents the properties for creating a
// KnowledgeDocument object.
type KnowledgeDocumentProperties struct {
	Content  string  `json:"content"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	AddedAt  float64 `json:"added_at"`
}

// ToMap converts KnowledgeDocumentProperties to the map format required by
// Weaviate's WithProperties() method.
func (p *KnowledgeDocumentProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"content":  p.Content,
		"title":    p.Title,
		"category": p.Category,
		"added_at": p.AddedAt,
	}
}
