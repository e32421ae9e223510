// Package embedding generates vector embeddings for document chunks.
//
// Three providers are supported: a local Ollama instance (the zero-config
// default), Google's Gemini embedding API, and the OpenAI embeddings API.
// All of them are optional; the pipeline stores chunks without vectors when
// embedding is disabled or a provider call fails.
package embedding

import "context"

// Embedding is one vector embedding of a text chunk.
type Embedding struct {
	Vector []float32
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}
