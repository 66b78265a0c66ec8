// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// ContextProvider supplies retrieval context for a query. Implemented by the
// knowledge base context assembler.
type ContextProvider interface {
	BuildContext(ctx context.Context, query string, maxTokens int) (string, error)
}

// DefaultRetrievalTokens is the retrieval budget the decorator requests per
// generation.
const DefaultRetrievalTokens = 1000

// RetrievalAugmentedClient decorates an LLMClient with knowledge base
// retrieval.
//
// # Description
//
// Before delegating to the wrapped client, the decorator asks the context
// provider for relevant knowledge and, when any is found, prefixes the
// prompt with it. Retrieval failures degrade to plain generation rather than
// failing the request: a voice conversation must keep flowing even when the
// knowledge base is down.
type RetrievalAugmentedClient struct {
	base      LLMClient
	provider  ContextProvider
	maxTokens int
}

var _ LLMClient = (*RetrievalAugmentedClient)(nil)

// NewRetrievalAugmentedClient wraps base with retrieval. maxTokens bounds the
// injected context; non-positive values use DefaultRetrievalTokens.
func NewRetrievalAugmentedClient(base LLMClient, provider ContextProvider, maxTokens int) *RetrievalAugmentedClient {
	if maxTokens <= 0 {
		maxTokens = DefaultRetrievalTokens
	}
	return &RetrievalAugmentedClient{
		base:      base,
		provider:  provider,
		maxTokens: maxTokens,
	}
}

// Generate implements the LLMClient interface. The incoming prompt doubles
// as the retrieval query.
func (r *RetrievalAugmentedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	kbContext, err := r.provider.BuildContext(ctx, prompt, r.maxTokens)
	if err != nil {
		slog.Warn("Retrieval failed, generating without knowledge base context", "error", err)
		return r.base.Generate(ctx, prompt, params)
	}
	if kbContext == "" {
		return r.base.Generate(ctx, prompt, params)
	}

	augmented := fmt.Sprintf(
		"Knowledge Base Context:\n%s\n\nUse this information to answer the user's question if relevant.\n\n%s",
		kbContext, prompt)
	slog.Debug("Augmented prompt with knowledge base context", "context_bytes", len(kbContext))
	return r.base.Generate(ctx, augmented, params)
}
