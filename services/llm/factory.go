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
	"log/slog"
	"os"
)

// NewClientFromEnv constructs the LLM backend selected by LLM_BACKEND_TYPE.
// Supported values: "openai", "ollama". Unset or unknown values default to
// ollama, which needs no API key.
func NewClientFromEnv() (LLMClient, error) {
	backendType := os.Getenv("LLM_BACKEND_TYPE")

	switch backendType {
	case "openai":
		slog.Info("Using OpenAI LLM backend")
		return NewOpenAIClient()
	case "ollama":
		slog.Info("Using Ollama LLM backend")
		return NewOllamaClient()
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to ollama")
		return NewOllamaClient()
	}
}
