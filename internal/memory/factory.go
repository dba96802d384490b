package memory

import (
	"context"
	"strings"
)

// NewEpisodicStore creates a postgres-backed store when configured,
// otherwise in-memory.
func NewEpisodicStore(ctx context.Context, databaseURL string) (EpisodicStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

// NewEmbedder returns the OpenAI-backed embedder when a key is configured,
// otherwise the deterministic local embedder.
func NewEmbedder(openAIKey string) Embedder {
	if strings.TrimSpace(openAIKey) == "" {
		return NewLocalEmbedder()
	}
	return NewOpenAIEmbedder(openAIKey)
}
