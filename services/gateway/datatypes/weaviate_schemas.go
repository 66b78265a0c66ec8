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
	"context"
	"log"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// KnowledgeDocumentClass is the Weaviate class backing the knowledge base.
const KnowledgeDocumentClass = "KnowledgeDocument"

func GetKnowledgeDocumentSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       KnowledgeDocumentClass,
		Description: "A knowledge base document used for retrieval-augmented generation.",
		// Server-side vectorization so nearText queries work without the
		// caller computing embeddings.
		Vectorizer:          "text2vec-transformers",
		InvertedIndexConfig: &models.InvertedIndexConfig{IndexTimestamps: true},
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The main content of the document.",
				Tokenization: "word",
			},
			{
				Name:            "title",
				DataType:        []string{"text"},
				Description:     "Display title used when formatting retrieval context.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "category",
				DataType:        []string{"text"},
				Description:     "Optional grouping label (e.g., 'faq', 'product').",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "added_at",
				DataType:        []string{"number"},
				Description:     "Timestamp (Unix ms) of when the document was added.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureWeaviateSchema creates any missing gateway classes at startup.
func EnsureWeaviateSchema(client *weaviate.Client) {
	schemaGetters := []func() *models.Class{
		GetKnowledgeDocumentSchema,
	}

	for _, getSchema := range schemaGetters {
		class := getSchema()
		slog.Info("Checking schema", "class", class.Class)

		// The client returns an error when the class does not exist yet.
		_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(context.Background())
		if err != nil {
			slog.Info("Schema not found, creating it...", "class", class.Class)
			err := client.Schema().ClassCreator().WithClass(class).Do(context.Background())
			if err != nil {
				log.Fatalf("Failed to create schema for class %s: %v", class.Class, err)
			}
			slog.Info("Successfully created schema", "class", class.Class)
		} else {
			slog.Info("Schema already exists", "class", class.Class)
		}
	}
}
