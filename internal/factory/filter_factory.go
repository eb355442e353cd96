package factory

import (
	"fmt"
	"os"

	"github.com/mikey/threat-verdict/internal/adapters/filter"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/ports"
	"github.com/mikey/threat-verdict/internal/textproc"
	"github.com/mikey/threat-verdict/internal/urls"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	evaluator ports.Evaluator
	parser    *filter.MessageParser
	sink      core.VerdictSink
}

// NewFilterFactory creates a new filter factory. sink may be nil.
func NewFilterFactory(
	cfg *config.Config,
	logger *zap.Logger,
	evaluator ports.Evaluator,
	parser *filter.MessageParser,
	sink core.VerdictSink,
) *FilterFactory {
	return &FilterFactory{
		cfg:       cfg,
		logger:    logger,
		evaluator: evaluator,
		parser:    parser,
		sink:      sink,
	}
}

// NewMessageParser creates the MIME parser shared by the filters
func NewMessageParser(cfg *config.Config, processor *textproc.TextProcessor, logger *zap.Logger) *filter.MessageParser {
	return filter.NewMessageParser(urls.NewExtractor(), processor, cfg.GetServer().MaxBodySize, logger)
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	sc := f.cfg.GetServer()

	switch sc.FilterType {
	case "postfix":
		return filter.NewPostfixFilter(f.evaluator, f.parser, f.sink, sc, f.logger), nil
	case "cli":
		return filter.NewCliFilter(
			f.evaluator,
			os.Stdout,
			f.cfg.GetString("cli.format"),
			f.logger,
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", sc.FilterType)
	}
}
