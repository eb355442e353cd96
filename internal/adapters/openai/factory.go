package openai

import (
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/nlp"
	"go.uber.org/zap"
)

// Factory creates OpenAI backed components
type Factory struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAI components
func NewFactory(cfg config.OpenAIConfig, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *Factory) client() *OpenAIClient {
	return NewOpenAIClient(
		f.cfg.APIKey,
		f.cfg.BaseURL,
		f.cfg.ModelName,
		f.cfg.EmbeddingModel,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
	)
}

// CreateClassifier creates a chat model classifier
func (f *Factory) CreateClassifier() (core.ClassifierOracle, error) {
	return f.client(), nil
}

// CreateBackend creates an NLP backend on the chat and embedding models
func (f *Factory) CreateBackend() (nlp.Backend, error) {
	return nlp.NewChatBackend(f.client()), nil
}
