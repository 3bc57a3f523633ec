package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go"

	"github.com/mohammad-safakhou/threader/config"
	"github.com/mohammad-safakhou/threader/models"
	openai_provider "github.com/mohammad-safakhou/threader/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI Client = "openai"
)

var (
	ErrMissingAPIKey       = errors.New("llm api key not configured")
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	Generate(ctx context.Context, prompt models.Prompt) (string, error)
}

// NewProvider creates a new LLM client from the llm config section. Any
// OpenAI-compatible endpoint works through llm.base_url.
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case OpenAI, "":
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return openai_provider.NewOpenAIClient(openai_provider.Options{
			APIKey:           cfg.APIKey,
			BaseURL:          cfg.BaseURL,
			Model:            cfg.Model,
			Temperature:      cfg.Temperature,
			MaxTokens:        cfg.MaxTokens,
			Timeout:          cfg.Timeout,
			StructuredOutput: cfg.StructuredOutput,
		}), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// IsAuthError reports whether err is the model API rejecting the credential.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrMissingAPIKey) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}
