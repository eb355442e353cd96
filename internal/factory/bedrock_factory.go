package factory

import (
	"fmt"

	"github.com/mikey/threat-verdict/internal/adapters/bedrock"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

// BedrockFactory creates Bedrock clients
type BedrockFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewBedrockFactory creates a new Bedrock factory
func NewBedrockFactory(cfg *config.Config, logger *zap.Logger) *BedrockFactory {
	return &BedrockFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a Bedrock phishing classifier.
// Credentials come from the default AWS chain.
func (f *BedrockFactory) CreateClassifier() (core.ClassifierOracle, error) {
	bc := f.cfg.GetBedrock()
	if bc.ModelID == "" {
		return nil, fmt.Errorf("bedrock model id is required")
	}
	return bedrock.NewFactory(bc, f.logger).CreateClassifier()
}
