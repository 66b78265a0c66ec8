// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/datatypes"
)

// =============================================================================
// Document Collection
// =============================================================================

// Collection manages knowledge base documents in Weaviate.
type Collection struct {
	client *weaviate.Client
}

// NewCollection creates a collection over the given client.
func NewCollection(client *weaviate.Client) *Collection {
	return &Collection{client: client}
}

// DocumentInput is one document for batch ingestion.
type DocumentInput struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func propertiesFor(content string, metadata map[string]any) map[string]interface{} {
	props := datatypes.KnowledgeDocumentProperties{
		Content: content,
		AddedAt: float64(time.Now().UnixMilli()),
	}
	if title, ok := metadata["title"].(string); ok {
		props.Title = title
	}
	if category, ok := metadata["category"].(string); ok {
		props.Category = category
	}
	return props.ToMap()
}

// AddDocument stores a single document and returns its id.
func (c *Collection) AddDocument(ctx context.Context, content string, metadata map[string]any) (string, error) {
	docId := uuid.New().String()

	_, err := c.client.Data().Creator().
		WithClassName(datatypes.KnowledgeDocumentClass).
		WithID(docId).
		WithProperties(propertiesFor(content, metadata)).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to add knowledge document", "docId", docId, "error", err)
		return "", fmt.Errorf("failed to save document to Weaviate: %w", err)
	}

	slog.Info("Added knowledge document", "docId", docId, "bytes", len(content))
	return docId, nil
}

// AddBatch stores many documents in one batch request and returns the ids of
// those that succeeded. Per-item failures are logged, not fatal.
func (c *Collection) AddBatch(ctx context.Context, docs []DocumentInput) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	objects := make([]*models.Object, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = uuid.New().String()
		objects[i] = &models.Object{
			Class:      datatypes.KnowledgeDocumentClass,
			ID:         strfmt.UUID(ids[i]),
			Properties: propertiesFor(doc.Content, doc.Metadata),
		}
	}

	resp, err := c.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to perform batch import to Weaviate", "error", err)
		return nil, fmt.Errorf("failed to save documents to Weaviate: %w", err)
	}

	created := make([]string, 0, len(docs))
	for i, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			created = append(created, ids[i])
			continue
		}
		if item.Result != nil && item.Result.Errors != nil {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Error in Weaviate batch item", "error", errItem.Message)
			}
		}
	}
	slog.Info("Batch imported knowledge documents", "requested", len(docs), "created", len(created))
	return created, nil
}

// List returns up to limit documents, newest first.
func (c *Collection) List(ctx context.Context, limit int) ([]datatypes.RetrievedDocument, error) {
	if limit <= 0 {
		limit = 100
	}

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "title"},
		{Name: "category"},
		{Name: "added_at"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
		}},
	}
	sortBy := graphql.Sort{
		Path:  []string{"added_at"},
		Order: graphql.Desc,
	}

	result, err := c.client.GraphQL().Get().
		WithClassName(datatypes.KnowledgeDocumentClass).
		WithFields(fields...).
		WithSort(sortBy).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.KnowledgeDocumentQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document list: %w", err)
	}

	docs := make([]datatypes.RetrievedDocument, 0, len(parsed.Get.KnowledgeDocument))
	for _, r := range parsed.Get.KnowledgeDocument {
		docs = append(docs, r.ToRetrievedDocument())
	}
	return docs, nil
}

// Delete removes a single document by id.
func (c *Collection) Delete(ctx context.Context, docId string) error {
	err := c.client.Data().Deleter().
		WithClassName(datatypes.KnowledgeDocumentClass).
		WithID(docId).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to delete knowledge document", "docId", docId, "error", err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	slog.Info("Deleted knowledge document", "docId", docId)
	return nil
}

// Clear removes every document in the knowledge base.
func (c *Collection) Clear(ctx context.Context) error {
	whereFilter := filters.Where().
		WithPath([]string{"added_at"}).
		WithOperator(filters.GreaterThanEqual).
		WithValueNumber(0)

	_, err := c.client.Batch().ObjectsBatchDeleter().
		WithClassName(datatypes.KnowledgeDocumentClass).
		WithOutput("minimal").
		WithWhere(whereFilter).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to clear knowledge base", "error", err)
		return fmt.Errorf("failed to clear knowledge base: %w", err)
	}
	slog.Info("Cleared knowledge base")
	return nil
}

// =============================================================================
// Seed Loading
// =============================================================================

// seedFile is the JSON shape of a knowledge base seed file: a list of
// documents with content and optional metadata.
type seedFile struct {
	Documents []DocumentInput `json:"documents"`
}

// LoadFromFile ingests a seed file into the knowledge base at startup.
// Returns the number of documents created.
func (c *Collection) LoadFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read knowledge base file %s: %w", path, err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		// Also accept a bare JSON array of documents.
		if arrErr := json.Unmarshal(data, &seed.Documents); arrErr != nil {
			return 0, fmt.Errorf("failed to parse knowledge base file %s: %w", path, err)
		}
	}
	if len(seed.Documents) == 0 {
		slog.Warn("Knowledge base file contained no documents", "path", path)
		return 0, nil
	}

	created, err := c.AddBatch(ctx, seed.Documents)
	if err != nil {
		return 0, err
	}
	return len(created), nil
}
