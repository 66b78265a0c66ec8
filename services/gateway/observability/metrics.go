// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the voice gateway.
//
// Metrics are exposed via the /metrics endpoint. All operations are
// thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "aleutian"

const gatewaySubsystem = "gateway"

// Metrics holds all Prometheus metrics for the gateway.
//
// # Fields
//
//   - SessionOpsTotal: Counter of session store operations by op and status.
//   - SessionsExpired: Counter of sessions removed by the reaper.
//   - MessagesAppended: Counter of messages appended across all sessions.
//   - DocumentsAdded: Counter of knowledge base documents ingested.
//   - SearchesTotal: Counter of similarity searches by status.
//   - RetrievalDocumentsPacked: Histogram of documents packed per context.
//   - RetrievalContextBytes: Histogram of assembled context sizes.
type Metrics struct {
	// SessionOpsTotal counts session store operations.
	// Labels: op (create, get, update, delete, end, append, list),
	// status (ok, miss, error)
	SessionOpsTotal *prometheus.CounterVec

	SessionsExpired  prometheus.Counter
	MessagesAppended prometheus.Counter
	DocumentsAdded   prometheus.Counter

	// SearchesTotal counts similarity searches.
	// Labels: status (success, error)
	SearchesTotal *prometheus.CounterVec

	RetrievalDocumentsPacked prometheus.Histogram
	RetrievalContextBytes    prometheus.Histogram
}

// DefaultMetrics is the singleton instance. Initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics creates and registers all gateway metrics on the default
// Prometheus registry. Call once at startup; panics on duplicate
// registration.
func InitMetrics() *Metrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics registers the gateway metrics on the given registerer. Tests
// pass a fresh registry so repeated construction never collides.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "session_ops_total",
				Help:      "Total session store operations by op and status",
			},
			[]string{"op", "status"},
		),

		SessionsExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "sessions_expired_total",
				Help:      "Total sessions removed by the expiry reaper",
			},
		),

		MessagesAppended: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "messages_appended_total",
				Help:      "Total messages appended to session histories",
			},
		),

		DocumentsAdded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "documents_added_total",
				Help:      "Total knowledge base documents ingested",
			},
		),

		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "searches_total",
				Help:      "Total similarity searches by status",
			},
			[]string{"status"},
		),

		RetrievalDocumentsPacked: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "retrieval_documents_packed",
				Help:      "Documents packed into each assembled context",
				Buckets:   []float64{0, 1, 2, 3, 4, 5, 10},
			},
		),

		RetrievalContextBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "retrieval_context_bytes",
				Help:      "Size in bytes of each assembled context",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
	}
}
