package di

import (
	"go.uber.org/dig"

	"github.com/mikey/threat-verdict/internal/adapters/store"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/factory"
	"github.com/mikey/threat-verdict/internal/logging"
	"github.com/mikey/threat-verdict/internal/ports"
	"github.com/mikey/threat-verdict/internal/textproc"
)

// BuildContainer creates and configures a dependency injection container for the filter daemon
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}
	return container, nil
}

// provideEngine registers everything below the configuration and the logger
func provideEngine(container *dig.Container) error {
	providers := []any{
		// Factories
		factory.NewCacheFactory,
		factory.NewClassifierFactory,
		factory.NewEngineFactory,
		factory.NewStoreFactory,
		factory.NewTextProcessorFactory,
		factory.NewFilterFactory,
		factory.NewMessageParser,

		// External lookup cache, nil when disabled
		func(f *factory.CacheFactory) (core.CacheRepository, error) {
			return f.CreateCacheRepository()
		},

		// Signal sources
		func(f *factory.EngineFactory) core.URLChecker {
			return f.CreateURLChecker()
		},
		func(f *factory.EngineFactory) core.SenderAnalyzer {
			return f.CreateSenderAnalyzer()
		},
		func(f *factory.ClassifierFactory) (core.ClassifierOracle, error) {
			return f.CreateClassifier()
		},
		func(f *factory.ClassifierFactory) (core.ContentAnalyzer, error) {
			return f.CreateContentAnalyzer()
		},

		// Text processing
		func(f *factory.TextProcessorFactory) *textproc.TextProcessor {
			return f.CreateTextProcessor()
		},
		func(f *factory.TextProcessorFactory) (core.TextTruncator, error) {
			return f.CreateTruncator()
		},

		// Threat engine
		func(
			f *factory.EngineFactory,
			checker core.URLChecker,
			sender core.SenderAnalyzer,
			classifier core.ClassifierOracle,
			truncator core.TextTruncator,
			analyzer core.ContentAnalyzer,
		) *core.ThreatEngine {
			return f.CreateEngine(checker, sender, classifier, truncator, analyzer)
		},
		func(engine *core.ThreatEngine) ports.Evaluator {
			return engine
		},

		// Verdict store, nil when disabled
		func(f *factory.StoreFactory) (*store.SQLStore, error) {
			return f.CreateStore()
		},
		func(s *store.SQLStore) core.VerdictSink {
			if s == nil {
				return nil
			}
			return s
		},

		// Email filter
		func(f *factory.FilterFactory) (ports.EmailFilter, error) {
			return f.CreateEmailFilter()
		},
	}

	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

// Resources are the long-lived handles to release on shutdown
type Resources struct {
	dig.In

	Cache core.CacheRepository
	Store *store.SQLStore
}

// Close releases the cache and the verdict store
func (r Resources) Close() error {
	if stopper, ok := r.Cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if r.Store != nil {
		return r.Store.Close()
	}
	return nil
}
