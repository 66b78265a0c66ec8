// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the voice gateway API.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/datatypes"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/observability"
	"github.com/jinterlante1206/AleutianVoice/services/gateway/session"
)

// CreateSession handles POST /v1/sessions.
//
// Session tracking degrades gracefully: when the backend rejects the write
// the session is still returned to the caller, flagged as untracked, so the
// voice conversation can proceed without server-side history.
func CreateSession(store *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// The body is optional; an anonymous session needs no fields.
		var req datatypes.CreateSessionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
			if err := req.Validate(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		newSession := datatypes.NewSession(req.UserId, req.Metadata)
		tracked := store.Create(c.Request.Context(), newSession)
		if !tracked {
			slog.Warn("Session created without backend tracking", "sessionId", newSession.Id)
			metrics.SessionOpsTotal.WithLabelValues("create", "error").Inc()
		} else {
			metrics.SessionOpsTotal.WithLabelValues("create", "ok").Inc()
		}

		c.JSON(http.StatusCreated, datatypes.SessionCreatedResponse{
			SessionId: newSession.Id,
			RoomName:  newSession.RoomName,
			CreatedAt: newSession.CreatedAt.Format(time.RFC3339),
			Tracked:   tracked,
		})
	}
}

// GetSession handles GET /v1/sessions/:sessionId.
func GetSession(store *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId := c.Param("sessionId")

		found, ok := store.Get(c.Request.Context(), sessionId)
		if !ok {
			metrics.SessionOpsTotal.WithLabelValues("get", "miss").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		metrics.SessionOpsTotal.WithLabelValues("get", "ok").Inc()
		c.JSON(http.StatusOK, found)
	}
}

// ListSessions handles GET /v1/sessions. An optional user_id query parameter
// filters by owner.
func ListSessions(store *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.Query("user_id")
		sessions := store.List(c.Request.Context(), userId)
		metrics.SessionOpsTotal.WithLabelValues("list", "ok").Inc()
		c.JSON(http.StatusOK, gin.H{
			"sessions": sessions,
			"count":    len(sessions),
		})
	}
}

// EndSession handles POST /v1/sessions/:sessionId/end. The session is marked
// ended but kept until the TTL evicts it, so post-call tooling can still
// read the transcript.
func EndSession(store *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId := c.Param("sessionId")

		ended, ok := store.End(c.Request.Context(), sessionId)
		if !ok {
			metrics.SessionOpsTotal.WithLabelValues("end", "miss").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		metrics.SessionOpsTotal.WithLabelValues("end", "ok").Inc()
		slog.Info("Ended session", "sessionId", sessionId)
		c.JSON(http.StatusOK, ended)
	}
}

// DeleteSession handles DELETE /v1/sessions/:sessionId.
func DeleteSession(store *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId := c.Param("sessionId")

		if !store.Delete(c.Request.Context(), sessionId) {
			metrics.SessionOpsTotal.WithLabelValues("delete", "error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
			return
		}
		metrics.SessionOpsTotal.WithLabelValues("delete", "ok").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_session_id": sessionId})
	}
}

// AppendMessage handles POST /v1/sessions/:sessionId/messages.
func AppendMessage(store *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId := c.Param("sessionId")

		var req datatypes.AppendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		msg := datatypes.NewMessage(req.Role, req.Content)
		if !store.AppendMessage(c.Request.Context(), sessionId, msg) {
			metrics.SessionOpsTotal.WithLabelValues("append", "miss").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		metrics.SessionOpsTotal.WithLabelValues("append", "ok").Inc()
		metrics.MessagesAppended.Inc()
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

// GetSessionContext handles GET /v1/sessions/:sessionId/context. An optional
// max_messages query parameter bounds the window.
func GetSessionContext(store *session.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId := c.Param("sessionId")
		maxMessages := intQuery(c, "max_messages", datatypes.DefaultContextMessages)

		context, ok := store.Context(c.Request.Context(), sessionId, maxMessages)
		if !ok {
			metrics.SessionOpsTotal.WithLabelValues("get", "miss").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		metrics.SessionOpsTotal.WithLabelValues("get", "ok").Inc()
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionId,
			"context":    context,
		})
	}
}
