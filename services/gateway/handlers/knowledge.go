// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/datatypes"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/knowledge"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/observability"
)

var tracer = otel.Tracer("aleutian.gateway.handlers")

// AddDocument handles POST /v1/knowledge/documents.
func AddDocument(collection *knowledge.Collection, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "handlers.AddDocument")
		defer span.End()

		var req datatypes.AddDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		docId, err := collection.AddDocument(ctx, req.Content, req.Metadata)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add document"})
			return
		}
		metrics.DocumentsAdded.Inc()
		c.JSON(http.StatusCreated, gin.H{"status": "success", "document_id": docId})
	}
}

// ListDocuments handles GET /v1/knowledge/documents.
func ListDocuments(collection *knowledge.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := intQuery(c, "limit", 100)
		docs, err := collection.List(c.Request.Context(), limit)
		if err != nil {
			slog.Error("Failed to list knowledge documents", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	}
}

// DeleteDocument handles DELETE /v1/knowledge/documents/:docId.
func DeleteDocument(collection *knowledge.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		docId := c.Param("docId")
		if err := collection.Delete(c.Request.Context(), docId); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_document_id": docId})
	}
}

// ClearKnowledgeBase handles DELETE /v1/knowledge/documents.
func ClearKnowledgeBase(collection *knowledge.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := collection.Clear(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear knowledge base"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

// SearchKnowledgeBase handles POST /v1/knowledge/search.
func SearchKnowledgeBase(searcher knowledge.Searcher, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "handlers.SearchKnowledgeBase")
		defer span.End()

		var req datatypes.SearchKnowledgeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		docs, err := searcher.Search(ctx, req.Query, req.TopK)
		if err != nil {
			metrics.SearchesTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		metrics.SearchesTotal.WithLabelValues("success").Inc()
		c.JSON(http.StatusOK, gin.H{"results": docs, "count": len(docs)})
	}
}

// GetRetrievalContext handles POST /v1/knowledge/context. Returns the
// assembled context string the RAG decorator would inject for the query.
func GetRetrievalContext(assembler *knowledge.ContextAssembler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "handlers.GetRetrievalContext")
		defer span.End()

		var req datatypes.ContextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		result, err := assembler.BuildContext(ctx, req.Query, req.MaxTokens)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "context assembly failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"context": result})
	}
}
