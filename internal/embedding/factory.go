package embedding

import (
	"context"
	"fmt"
	"os"
)

// NewProvider builds the provider named by kind: "ollama" (the default),
// "gemini", or "openai". API keys come from the environment (GEMINI_API_KEY,
// OPENAI_API_KEY); model and baseURL are optional overrides and fall back
// to each provider's defaults when empty.
func NewProvider(ctx context.Context, kind, model, baseURL string) (Provider, error) {
	switch kind {
	case "", "ollama":
		var opts []OllamaOption
		if model != "" {
			opts = append(opts, WithModel(model))
		}
		if baseURL != "" {
			opts = append(opts, WithBaseURL(baseURL))
		}
		return NewOllamaProvider(opts...), nil

	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		var opts []GeminiOption
		if model != "" {
			opts = append(opts, WithGeminiModel(model))
		}
		return NewGeminiProvider(ctx, apiKey, opts...)

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		var opts []OpenAIOption
		if model != "" {
			opts = append(opts, WithOpenAIModel(model))
		}
		if baseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(baseURL))
		}
		return NewOpenAIProvider(apiKey, opts...), nil
	}

	return nil, fmt.Errorf("unknown embedding provider %q", kind)
}
