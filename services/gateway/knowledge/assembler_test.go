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
	"strings"
	"testing"

	"github.com/jinterlante1206/AleutianVoice/services/gateway/datatypes"
)

// fakeSearcher returns a fixed result set, recording the requested topK.
type fakeSearcher struct {
	docs      []datatypes.RetrievedDocument
	err       error
	lastTopK  int
	lastQuery string
}

func (f *fakeSearcher) Search(_ context.Context, query string, topK int) ([]datatypes.RetrievedDocument, error) {
	f.lastQuery = query
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	if topK < len(f.docs) {
		return f.docs[:topK], nil
	}
	return f.docs, nil
}

func doc(title, content string) datatypes.RetrievedDocument {
	metadata := map[string]any{}
	if title != "" {
		metadata["title"] = title
	}
	return datatypes.RetrievedDocument{Content: content, Metadata: metadata}
}

// TestBuildContext_Empty tests that an empty knowledge base yields an empty
// string, not an error.
func TestBuildContext_Empty(t *testing.T) {
	assembler := NewContextAssembler(&fakeSearcher{}, DefaultAssemblerConfig(), nil)

	got, err := assembler.BuildContext(context.Background(), "anything", 1000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty context, got %q", got)
	}
}

// TestBuildContext_Formatting tests the intro line and document block layout.
func TestBuildContext_Formatting(t *testing.T) {
	searcher := &fakeSearcher{docs: []datatypes.RetrievedDocument{
		doc("Returns Policy", "30 day returns."),
		doc("", "Untitled body."),
	}}
	assembler := NewContextAssembler(searcher, DefaultAssemblerConfig(), nil)

	got, err := assembler.BuildContext(context.Background(), "returns", 1000)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.HasPrefix(got, "Here is relevant information from the knowledge base:\n") {
		t.Errorf("Missing intro line: %q", got)
	}
	if !strings.Contains(got, "[Document: Returns Policy]\n30 day returns.") {
		t.Errorf("Missing titled block: %q", got)
	}
	if !strings.Contains(got, "[Document: Untitled]\nUntitled body.") {
		t.Errorf("Missing untitled fallback block: %q", got)
	}
	if strings.Index(got, "Returns Policy") > strings.Index(got, "Untitled body.") {
		t.Error("Blocks out of relevance order")
	}
}

// TestBuildContext_BudgetHalts tests that the first overflowing document
// stops packing even when a later document would fit.
func TestBuildContext_BudgetHalts(t *testing.T) {
	searcher := &fakeSearcher{docs: []datatypes.RetrievedDocument{
		doc("A", strings.Repeat("a", 100)),
		doc("B", strings.Repeat("b", 4000)),
		doc("C", "tiny"),
	}}
	assembler := NewContextAssembler(searcher, DefaultAssemblerConfig(), nil)

	// Budget admits A comfortably, never B; C must not sneak in after the halt.
	got, err := assembler.BuildContext(context.Background(), "q", 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(got, "[Document: A]") {
		t.Errorf("Expected document A packed: %q", got)
	}
	if strings.Contains(got, "bbbb") {
		t.Error("Oversized document B should not be packed")
	}
	if strings.Contains(got, "tiny") {
		t.Error("Packing must halt at the first overflow, document C leaked in")
	}
}

// TestBuildContext_OversizedFirstDocument tests the intro-only result.
func TestBuildContext_OversizedFirstDocument(t *testing.T) {
	searcher := &fakeSearcher{docs: []datatypes.RetrievedDocument{
		doc("Big", strings.Repeat("x", 400)),
	}}
	assembler := NewContextAssembler(searcher, DefaultAssemblerConfig(), nil)

	got, err := assembler.BuildContext(context.Background(), "q", 50)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := "Here is relevant information from the knowledge base:\n"
	if got != want {
		t.Errorf("Expected just the intro line, got %q", got)
	}
}

// TestBuildContext_NeverExceedsBudget tests the size bound across varied
// candidate sets.
func TestBuildContext_NeverExceedsBudget(t *testing.T) {
	cases := [][]datatypes.RetrievedDocument{
		{doc("A", strings.Repeat("a", 50)), doc("B", strings.Repeat("b", 50))},
		{doc("A", strings.Repeat("a", 300)), doc("B", strings.Repeat("b", 10))},
		{doc("A", "x"), doc("B", "y"), doc("C", "z")},
		{doc("A", strings.Repeat("a", 120)), doc("B", strings.Repeat("b", 120)), doc("C", strings.Repeat("c", 120))},
	}

	for i, docs := range cases {
		t.Run(fmt.Sprintf("case-%d", i), func(t *testing.T) {
			assembler := NewContextAssembler(&fakeSearcher{docs: docs}, DefaultAssemblerConfig(), nil)
			maxTokens := 100
			got, err := assembler.BuildContext(context.Background(), "q", maxTokens)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got == "" {
				return
			}
			// The intro line is always emitted when any document matched;
			// packed documents must keep the estimate within the budget.
			intro := "Here is relevant information from the knowledge base:\n"
			if got != intro && len(got)/DefaultCharsPerToken > maxTokens {
				t.Errorf("Context estimate %d tokens exceeds budget %d", len(got)/DefaultCharsPerToken, maxTokens)
			}
		})
	}
}

// TestBuildContext_TopKOverfetch verifies the assembler fetches its
// configured candidate count, not the caller's budget.
func TestBuildContext_TopKOverfetch(t *testing.T) {
	searcher := &fakeSearcher{docs: []datatypes.RetrievedDocument{doc("A", "a")}}
	assembler := NewContextAssembler(searcher, AssemblerConfig{TopK: 7}, nil)

	_, _ = assembler.BuildContext(context.Background(), "q", 1000)
	if searcher.lastTopK != 7 {
		t.Errorf("Expected topK 7, got %d", searcher.lastTopK)
	}
}

// TestBuildContext_SearchError tests error propagation.
func TestBuildContext_SearchError(t *testing.T) {
	searcher := &fakeSearcher{err: fmt.Errorf("weaviate down")}
	assembler := NewContextAssembler(searcher, DefaultAssemblerConfig(), nil)

	got, err := assembler.BuildContext(context.Background(), "q", 1000)
	if err == nil {
		t.Fatal("Expected error from failed search")
	}
	if got != "" {
		t.Errorf("Expected empty context on error, got %q", got)
	}
}

// TestBuildContext_NonPositiveBudget returns nothing without searching.
func TestBuildContext_NonPositiveBudget(t *testing.T) {
	searcher := &fakeSearcher{docs: []datatypes.RetrievedDocument{doc("A", "a")}}
	assembler := NewContextAssembler(searcher, DefaultAssemblerConfig(), nil)

	got, err := assembler.BuildContext(context.Background(), "q", 0)
	if err != nil || got != "" {
		t.Errorf("Expected empty result for zero budget, got %q (err=%v)", got, err)
	}
	if searcher.lastTopK != 0 {
		t.Errorf("Expected no search for zero budget, topK=%d", searcher.lastTopK)
	}
}

// TestAssemblerConfig_Defaults tests zero-value correction.
func TestAssemblerConfig_Defaults(t *testing.T) {
	assembler := NewContextAssembler(&fakeSearcher{}, AssemblerConfig{}, nil)
	if assembler.config.TopK != DefaultAssemblerTopK {
		t.Errorf("Expected default TopK %d, got %d", DefaultAssemblerTopK, assembler.config.TopK)
	}
	if assembler.config.CharsPerToken != DefaultCharsPerToken {
		t.Errorf("Expected default CharsPerToken %d, got %d", DefaultCharsPerToken, assembler.config.CharsPerToken)
	}
}
