package llm

import (
	"context"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfask"
	"github.com/m-mizutani/pdfask/llm/claude"
	"github.com/m-mizutani/pdfask/llm/gemini"
	"github.com/m-mizutani/pdfask/llm/openai"
)

// Provider names a hosted model backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
)

// Providers lists the supported backends. The first one is the default.
var Providers = []Provider{ProviderGemini, ProviderOpenAI, ProviderClaude}

// Valid reports whether p is a supported backend.
func (p Provider) Valid() bool {
	return slices.Contains(Providers, p)
}

// Config selects and parameterizes a backend.
type Config struct {
	Provider Provider
	APIKey   string
	// Model overrides the backend's default model when not empty.
	Model   string
	BaseURL string
}

// New builds the client for cfg.Provider. The credential is checked here so
// that a missing key fails once at startup rather than on each request.
func New(ctx context.Context, cfg Config) (pdfask.LLMClient, error) {
	if !cfg.Provider.Valid() {
		return nil, goerr.Wrap(pdfask.ErrInvalidParameter, "unknown provider", goerr.V("provider", cfg.Provider))
	}
	if cfg.APIKey == "" {
		return nil, goerr.New("API key is required", goerr.V("provider", cfg.Provider), goerr.Tag(pdfask.TagCredentialMissing))
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		var opts []openai.Option
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err := openai.New(ctx, cfg.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil

	case ProviderClaude:
		var opts []claude.Option
		if cfg.Model != "" {
			opts = append(opts, claude.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, claude.WithBaseURL(cfg.BaseURL))
		}
		client, err := claude.New(ctx, cfg.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		var opts []gemini.Option
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		client, err := gemini.New(ctx, cfg.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
