// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge implements the knowledge base: document storage,
// similarity search, and retrieval context assembly.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/datatypes"
)

// Searcher finds documents relevant to a query, nearest first. The assembler
// depends on this interface rather than the Weaviate client so retrieval can
// be faked in tests.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]datatypes.RetrievedDocument, error)
}

// WeaviateSearcher runs nearText similarity queries against the
// KnowledgeDocument class. Vectorization happens server side; this service
// never computes embeddings.
type WeaviateSearcher struct {
	client *weaviate.Client
}

// NewWeaviateSearcher creates a searcher over the given client.
func NewWeaviateSearcher(client *weaviate.Client) *WeaviateSearcher {
	return &WeaviateSearcher{client: client}
}

// Search returns up to topK documents ordered nearest first.
func (s *WeaviateSearcher) Search(ctx context.Context, query string, topK int) ([]datatypes.RetrievedDocument, error) {
	if topK <= 0 {
		return nil, nil
	}

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "category"},
		{Name: "added_at"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "distance"},
		}},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(datatypes.KnowledgeDocumentClass).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		slog.Error("Knowledge base search failed", "error", err)
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.KnowledgeDocumentQueryResponse](result)
	if err != nil {
		slog.Error("Failed to parse search results", "error", err)
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	docs := make([]datatypes.RetrievedDocument, 0, len(parsed.Get.KnowledgeDocument))
	for _, r := range parsed.Get.KnowledgeDocument {
		docs = append(docs, r.ToRetrievedDocument())
	}
	slog.Debug("Knowledge base search complete", "query_len", len(query), "results", len(docs))
	return docs, nil
}
