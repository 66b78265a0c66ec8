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
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/datatypes"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/observability"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/session"
	"github.com/jinterlante1206/AleutianVoice/services/llm"
)

// GenerateReply handles POST /v1/sessions/:sessionId/generate.
//
// The user's text is appended to the session, the recent conversation is
// prepended to the prompt, and the reply is generated through the configured
// LLM client (retrieval-augmented when the knowledge base is up). The reply
// is appended to the session before returning.
func GenerateReply(store *session.Store, client llm.LLMClient, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "handlers.GenerateReply")
		defer span.End()

		sessionId := c.Param("sessionId")

		var req datatypes.AppendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.Role = datatypes.RoleUser
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !store.AppendMessage(ctx, sessionId, datatypes.NewMessage(req.Role, req.Content)) {
			metrics.SessionOpsTotal.WithLabelValues("append", "miss").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		metrics.MessagesAppended.Inc()

		prompt := req.Content
		if history, ok := store.Context(ctx, sessionId, datatypes.DefaultContextMessages); ok && history != "" {
			prompt = fmt.Sprintf("Conversation so far:\n%s\n\nRespond to the latest user message.", history)
		}

		answer, err := client.Generate(ctx, prompt, llm.GenerationParams{})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed"})
			return
		}

		if store.AppendMessage(ctx, sessionId, datatypes.NewMessage(datatypes.RoleAssistant, answer)) {
			metrics.MessagesAppended.Inc()
		}
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionId,
			"answer":     answer,
		})
	}
}
