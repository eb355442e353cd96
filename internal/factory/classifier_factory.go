package factory

import (
	"fmt"

	"github.com/mikey/threat-verdict/internal/adapters/inference"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/nlp"
	"go.uber.org/zap"
)

// ClassifierFactory creates the phishing classifier and the NLP content analyzer
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a classifier based on the configuration.
// Provider "none" yields a nil classifier and verdicts are built from heuristics only.
func (f *ClassifierFactory) CreateClassifier() (core.ClassifierOracle, error) {
	provider := f.cfg.GetClassifier().Provider

	var (
		classifier core.ClassifierOracle
		err        error
	)
	switch provider {
	case "none":
		f.logger.Warn("No classifier configured, model contribution disabled")
		return nil, nil
	case "inference":
		ic := f.cfg.GetInference()
		if ic.Endpoint == "" {
			return nil, fmt.Errorf("inference endpoint is required")
		}
		classifier = inference.NewClassifier(f.inferenceClient(ic), ic.Model, ic.PositiveLabels)
	case "openai":
		classifier, err = NewOpenAIFactory(f.cfg, f.logger).CreateClassifier()
	case "gemini":
		classifier, err = NewGeminiFactory(f.cfg, f.logger).CreateClassifier()
	case "bedrock":
		classifier, err = NewBedrockFactory(f.cfg, f.logger).CreateClassifier()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Classifier ready", zap.String("provider", provider), zap.String("model", classifier.Name()))
	return classifier, nil
}

// CreateContentAnalyzer creates the NLP content analyzer, or nil when it is disabled
func (f *ClassifierFactory) CreateContentAnalyzer() (core.ContentAnalyzer, error) {
	nc := f.cfg.GetNLP()
	if !nc.Enabled {
		return nil, nil
	}

	var (
		backend nlp.Backend
		err     error
	)
	switch nc.Provider {
	case "inference":
		ic := f.cfg.GetInference()
		if ic.Endpoint == "" {
			return nil, fmt.Errorf("inference endpoint is required")
		}
		backend = inference.NewBackend(f.inferenceClient(ic), inference.Models{
			ZeroShot:  ic.ZeroShotModel,
			Sentiment: ic.SentimentModel,
			Emotion:   ic.EmotionModel,
			Embedding: ic.EmbeddingModel,
		})
	case "openai":
		backend, err = NewOpenAIFactory(f.cfg, f.logger).CreateBackend()
	case "gemini":
		backend, err = NewGeminiFactory(f.cfg, f.logger).CreateBackend()
	default:
		return nil, fmt.Errorf("unsupported nlp provider: %s", nc.Provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Advanced content analysis enabled", zap.String("provider", nc.Provider))
	return nlp.NewAnalyzer(backend, f.logger), nil
}

func (f *ClassifierFactory) inferenceClient(ic config.InferenceConfig) *inference.Client {
	return inference.NewClient(ic.Endpoint, ic.APIKey, ic.Timeout, f.logger)
}
