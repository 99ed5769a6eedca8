package ai

import "context"

// Runtime is the minimal surface the query engine needs from an LLM backend:
// one request, one synchronous reply. Implemented by Client (OpenRouter) and
// OllamaClient (local).
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used for runtime selection.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)
