package factory

import (
	"fmt"

	"github.com/mikey/threat-verdict/internal/adapters/openai"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/nlp"
	"go.uber.org/zap"
)

// OpenAIFactory creates OpenAI clients
type OpenAIFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, logger *zap.Logger) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *OpenAIFactory) factory() (*openai.Factory, error) {
	oc := f.cfg.GetOpenAI()
	// self-hosted compatible servers may not need a key
	if oc.APIKey == "" && oc.BaseURL == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	return openai.NewFactory(oc, f.logger), nil
}

// CreateClassifier creates an OpenAI phishing classifier
func (f *OpenAIFactory) CreateClassifier() (core.ClassifierOracle, error) {
	factory, err := f.factory()
	if err != nil {
		return nil, err
	}
	return factory.CreateClassifier()
}

// CreateBackend creates an OpenAI NLP backend
func (f *OpenAIFactory) CreateBackend() (nlp.Backend, error) {
	factory, err := f.factory()
	if err != nil {
		return nil, err
	}
	return factory.CreateBackend()
}
