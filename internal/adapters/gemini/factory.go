package gemini

import (
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/nlp"
	"go.uber.org/zap"
)

// Factory creates Gemini backed components
type Factory struct {
	cfg    config.GeminiConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for Gemini components
func NewFactory(cfg config.GeminiConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *Factory) client() (*GeminiClient, error) {
	return NewGeminiClient(
		f.cfg.APIKey,
		f.cfg.ModelName,
		f.cfg.EmbeddingModel,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
	)
}

// CreateClassifier creates a Gemini classifier
func (f *Factory) CreateClassifier() (core.ClassifierOracle, error) {
	return f.client()
}

// CreateBackend creates an NLP backend on the Gemini models
func (f *Factory) CreateBackend() (nlp.Backend, error) {
	c, err := f.client()
	if err != nil {
		return nil, err
	}
	return nlp.NewChatBackend(c), nil
}
