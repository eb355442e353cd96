package factory

import (
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/textproc"
	"go.uber.org/zap"
)

// TextProcessorFactory creates text processors
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *textproc.TextProcessor {
	return textproc.NewTextProcessor(f.logger)
}

// CreateTruncator creates the classifier input truncator for the configured token budget.
// Token counts come from the tokenizer of the configured provider where one is available.
func (f *TextProcessorFactory) CreateTruncator() (core.TextTruncator, error) {
	tokenizer, err := f.CreateTokenizer()
	if err != nil {
		return nil, err
	}
	return textproc.NewTruncator(tokenizer, f.cfg.GetClassifier().TokenBudget, f.logger), nil
}

// CreateTokenizer creates the tokenizer matching the classifier provider
func (f *TextProcessorFactory) CreateTokenizer() (core.Tokenizer, error) {
	cc := f.cfg.GetClassifier()

	switch cc.Provider {
	case "inference":
		if cc.TokenizerFile == "" {
			f.logger.Warn("No tokenizer file configured for the inference model, counting words instead")
			return textproc.NewWordTokenizer(), nil
		}
		tokenizer, err := textproc.NewHFTokenizer(cc.TokenizerFile)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Using model tokenizer", zap.String("file", cc.TokenizerFile))
		return tokenizer, nil
	case "openai":
		model := f.cfg.GetOpenAI().ModelName
		tokenizer, err := textproc.NewTiktokenTokenizer(model)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Using tiktoken tokenizer", zap.String("model", model))
		return tokenizer, nil
	default:
		return textproc.NewWordTokenizer(), nil
	}
}
