// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/handlers"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/knowledge"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/observability"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/session"
	"github.com/jinterlante1206/AleutianVoice/services/llm"
)

// Dependencies carries everything the routes need. Knowledge base fields may
// be nil when the gateway runs without Weaviate; the knowledge endpoints are
// not registered in that case.
type Dependencies struct {
	Store      *session.Store
	Metrics    *observability.Metrics
	Collection *knowledge.Collection
	Searcher   knowledge.Searcher
	Assembler  *knowledge.ContextAssembler
	LLMClient  llm.LLMClient
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health", handlers.HealthCheck(deps.Store, deps.Collection != nil))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", handlers.CreateSession(deps.Store, deps.Metrics))
			sessions.GET("", handlers.ListSessions(deps.Store, deps.Metrics))
			sessions.GET("/:sessionId", handlers.GetSession(deps.Store, deps.Metrics))
			sessions.DELETE("/:sessionId", handlers.DeleteSession(deps.Store, deps.Metrics))
			sessions.POST("/:sessionId/end", handlers.EndSession(deps.Store, deps.Metrics))
			sessions.POST("/:sessionId/messages", handlers.AppendMessage(deps.Store, deps.Metrics))
			sessions.GET("/:sessionId/context", handlers.GetSessionContext(deps.Store, deps.Metrics))
			if deps.LLMClient != nil {
				sessions.POST("/:sessionId/generate", handlers.GenerateReply(deps.Store, deps.LLMClient, deps.Metrics))
			}
		}

		if deps.Collection != nil {
			kb := v1.Group("/knowledge")
			{
				kb.POST("/documents", handlers.AddDocument(deps.Collection, deps.Metrics))
				kb.GET("/documents", handlers.ListDocuments(deps.Collection))
				kb.DELETE("/documents", handlers.ClearKnowledgeBase(deps.Collection))
				kb.DELETE("/documents/:docId", handlers.DeleteDocument(deps.Collection))
				kb.POST("/search", handlers.SearchKnowledgeBase(deps.Searcher, deps.Metrics))
				kb.POST("/context", handlers.GetRetrievalContext(deps.Assembler))
			}
		}
	}
}
