// Package embeddings provides embedding generation for semantic candidate search.
package embeddings

import (
	"context"
)

// Client generates embedding vectors for entity name text.
type Client interface {
	// EmbedQuery generates an embedding vector for the given query text.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// EmbedDocuments generates embedding vectors for the given documents.
	EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error)
}

// NoopClient is used when embeddings are disabled. It returns nil vectors,
// which callers treat as "no semantic signal available".
type NoopClient struct{}

// NewNoopClient creates a new NoopClient.
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (c *NoopClient) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}

func (c *NoopClient) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	return nil, nil
}
