package llm

import (
	"fmt"
	"time"

	"github.com/aescanero/eduvid/internal/ports"
	"github.com/aescanero/eduvid/pkg/adapters/llm/anthropic"
	"go.uber.org/zap"
)

// Config holds LLM client configuration
type Config struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewContentGenerator creates a content generator based on provider
func NewContentGenerator(cfg *Config) (ports.ContentGenerator, error) {
	switch cfg.Provider {
	case "anthropic", "":
		return anthropic.NewGenerator(anthropic.Options{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
			RequestTimeout: cfg.RequestTimeout,
		}, cfg.Logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
