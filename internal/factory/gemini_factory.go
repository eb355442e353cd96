package factory

import (
	"fmt"

	"github.com/mikey/threat-verdict/internal/adapters/gemini"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/nlp"
	"go.uber.org/zap"
)

// GeminiFactory creates Gemini clients
type GeminiFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *GeminiFactory) factory() (*gemini.Factory, error) {
	gc := f.cfg.GetGemini()
	if gc.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	return gemini.NewFactory(gc, f.logger), nil
}

// CreateClassifier creates a Gemini phishing classifier
func (f *GeminiFactory) CreateClassifier() (core.ClassifierOracle, error) {
	factory, err := f.factory()
	if err != nil {
		return nil, err
	}
	return factory.CreateClassifier()
}

// CreateBackend creates a Gemini NLP backend
func (f *GeminiFactory) CreateBackend() (nlp.Backend, error) {
	factory, err := f.factory()
	if err != nil {
		return nil, err
	}
	return factory.CreateBackend()
}
