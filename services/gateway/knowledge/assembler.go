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
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/observability"
)

var tracer = otel.Tracer("aleutian.gateway.knowledge")

// =============================================================================
// Context Assembly
// =============================================================================

const (
	// DefaultAssemblerTopK is how many candidates are fetched per query.
	// Deliberately larger than most budgets admit, so the packer has
	// alternatives when early documents are long.
	DefaultAssemblerTopK = 5

	// DefaultCharsPerToken converts a token budget to a character budget.
	// A crude heuristic, but retrieval context only needs a soft ceiling.
	DefaultCharsPerToken = 4

	// contextIntro opens every non-empty assembled context.
	contextIntro = "Here is relevant information from the knowledge base:\n"
)

// AssemblerConfig holds tunables for the context assembler.
type AssemblerConfig struct {
	// TopK is the candidate fetch size. Defaults to DefaultAssemblerTopK.
	TopK int

	// CharsPerToken is the token-to-character conversion ratio.
	// Defaults to DefaultCharsPerToken.
	CharsPerToken int
}

// DefaultAssemblerConfig returns production defaults.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		TopK:          DefaultAssemblerTopK,
		CharsPerToken: DefaultCharsPerToken,
	}
}

func (c *AssemblerConfig) ensureDefaults() {
	if c.TopK <= 0 {
		c.TopK = DefaultAssemblerTopK
	}
	if c.CharsPerToken <= 0 {
		c.CharsPerToken = DefaultCharsPerToken
	}
}

// ContextAssembler builds a bounded text context from search results.
//
// # Description
//
// For a query, the assembler fetches the TopK nearest documents and packs
// them greedily into a character budget derived from the caller's token
// budget. Documents are packed whole, in relevance order; the first document
// that would overflow the budget halts packing even if a later, smaller
// document would still fit. Order matters more than density here: the most
// relevant documents must come first in the prompt.
type ContextAssembler struct {
	searcher Searcher
	config   AssemblerConfig
	metrics  *observability.Metrics
}

// NewContextAssembler creates an assembler. metrics may be nil.
func NewContextAssembler(searcher Searcher, config AssemblerConfig, metrics *observability.Metrics) *ContextAssembler {
	config.ensureDefaults()
	return &ContextAssembler{searcher: searcher, config: config, metrics: metrics}
}

// BuildContext assembles retrieval context for a query within maxTokens.
//
// # Outputs
//
//   - string: The assembled context. Empty when no documents match; just the
//     introductory line when documents match but none fit the budget.
//   - error: Non-nil when the search itself fails. An empty knowledge base
//     is not an error.
func (a *ContextAssembler) BuildContext(ctx context.Context, query string, maxTokens int) (string, error) {
	ctx, span := tracer.Start(ctx, "knowledge.BuildContext")
	defer span.End()
	span.SetAttributes(attribute.Int("retrieval.max_tokens", maxTokens))

	if maxTokens <= 0 {
		return "", nil
	}

	docs, err := a.searcher.Search(ctx, query, a.config.TopK)
	if err != nil {
		return "", fmt.Errorf("context assembly search failed: %w", err)
	}
	if len(docs) == 0 {
		return "", nil
	}

	budget := maxTokens * a.config.CharsPerToken
	parts := []string{contextIntro}
	size := len(contextIntro)
	packed := 0

	for _, doc := range docs {
		block := fmt.Sprintf("\n[Document: %s]\n%s\n", doc.Title(), doc.Content)
		// The joining newline counts against the budget too, so the final
		// string never exceeds it.
		projected := size + 1 + len(block)
		if projected > budget {
			break
		}
		parts = append(parts, block)
		size = projected
		packed++
	}

	result := strings.Join(parts, "\n")
	span.SetAttributes(
		attribute.Int("retrieval.documents_packed", packed),
		attribute.Int("retrieval.context_bytes", len(result)),
	)
	if a.metrics != nil {
		a.metrics.RetrievalDocumentsPacked.Observe(float64(packed))
		a.metrics.RetrievalContextBytes.Observe(float64(len(result)))
	}
	slog.Debug("Assembled retrieval context",
		"candidates", len(docs), "packed", packed, "bytes", len(result))
	return result, nil
}
