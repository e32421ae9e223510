package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// DefaultGeminiModel is Google's text embedding model.
	DefaultGeminiModel = "text-embedding-004"

	// DefaultGeminiDimensions is the output size of text-embedding-004.
	DefaultGeminiDimensions = 768
)

// GeminiProvider generates embeddings with the Google AI API.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

// GeminiOption configures a GeminiProvider.
type GeminiOption func(*GeminiProvider)

// WithGeminiModel sets the embedding model. Override the dimensions too
// when the model's output size differs from the default.
func WithGeminiModel(model string) GeminiOption {
	return func(p *GeminiProvider) {
		p.model = model
	}
}

// WithGeminiDimensions sets the expected vector dimensions.
func WithGeminiDimensions(dims int) GeminiOption {
	return func(p *GeminiProvider) {
		p.dimensions = dims
	}
}

// NewGeminiProvider creates a Gemini embedding provider.
func NewGeminiProvider(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	p := &GeminiProvider{
		client:     client,
		model:      DefaultGeminiModel,
		dimensions: DefaultGeminiDimensions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Embed generates an embedding for the given text.
func (p *GeminiProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	em := p.client.EmbeddingModel(p.model)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return Embedding{}, fmt.Errorf("gemini embedding: %w", err)
	}

	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return Embedding{}, fmt.Errorf("gemini returned an empty embedding")
	}
	if len(resp.Embedding.Values) != p.dimensions {
		return Embedding{}, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(resp.Embedding.Values), p.dimensions)
	}

	return Embedding{Vector: resp.Embedding.Values}, nil
}

// ModelName returns the name of the embedding model.
func (p *GeminiProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}

// Close releases the underlying API client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}
