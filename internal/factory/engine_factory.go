package factory

import (
	"github.com/mikey/threat-verdict/internal/adapters/registry"
	"github.com/mikey/threat-verdict/internal/adapters/virustotal"
	"github.com/mikey/threat-verdict/internal/config"
	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/domainlist"
	"github.com/mikey/threat-verdict/internal/heuristics"
	"github.com/mikey/threat-verdict/internal/reputation"
	"github.com/mikey/threat-verdict/internal/sender"
	"github.com/mikey/threat-verdict/internal/urls"
	"go.uber.org/zap"
)

// EngineFactory assembles the signal sources and the threat engine
type EngineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	cache  core.CacheRepository
}

// NewEngineFactory creates a new engine factory. cache may be nil.
func NewEngineFactory(cfg *config.Config, logger *zap.Logger, cache core.CacheRepository) *EngineFactory {
	return &EngineFactory{
		cfg:    cfg,
		logger: logger,
		cache:  cache,
	}
}

// CreateURLChecker creates the URL reputation service over VirusTotal
func (f *EngineFactory) CreateURLChecker() core.URLChecker {
	rc := f.cfg.GetReputation()
	vc := f.cfg.GetVirusTotal()
	if !rc.Enabled {
		f.logger.Info("URL reputation lookups disabled")
		return reputation.Disabled{}
	}
	if vc.APIKey == "" {
		f.logger.Warn("No VirusTotal API key configured, URL reputation lookups disabled")
		return reputation.Disabled{}
	}

	var oracle core.ReputationOracle = virustotal.NewClient(vc.APIKey, vc.BaseURL, vc.Timeout, f.logger)
	if f.cache != nil {
		oracle = reputation.NewCachedOracle(oracle, f.cache, f.cfg.GetCache().TTL, f.logger)
	}

	return reputation.NewService(oracle, reputation.Options{
		SubmitDelay:       rc.SubmitDelay,
		MaxConcurrency:    rc.MaxConcurrency,
		RequestsPerMinute: rc.RequestsPerMinute,
	}, f.logger)
}

// CreateSenderAnalyzer creates the sender analyzer with an RDAP then WHOIS registration lookup
func (f *EngineFactory) CreateSenderAnalyzer() core.SenderAnalyzer {
	rc := f.cfg.GetRegistry()

	var lookup core.RegistrationLookup = registry.NewFallbackLookup(f.logger,
		registry.NewRDAPClient(rc.RDAPEndpoints, rc.RDAPBootstrap, rc.Timeout, f.logger),
		registry.NewWHOISClient(rc.WHOISServers, rc.Timeout, f.logger),
	)
	if f.cache != nil {
		lookup = registry.NewCachedLookup(lookup, f.cache, f.cfg.GetCache().TTL, f.logger)
	}

	freeMail := domainlist.NewFreeMailMatcher(f.cfg.GetSender().FreeMailDomains, f.logger)
	f.logger.Debug("Free mail provider list loaded", zap.Int("domains", freeMail.Len()))
	return sender.NewAnalyzer(lookup, freeMail, f.logger)
}

// CreateEngine creates the threat engine. classifier and analyzer may be nil.
func (f *EngineFactory) CreateEngine(
	checker core.URLChecker,
	senderAnalyzer core.SenderAnalyzer,
	classifier core.ClassifierOracle,
	truncator core.TextTruncator,
	analyzer core.ContentAnalyzer,
) *core.ThreatEngine {
	ec := f.cfg.GetEngine()
	return core.NewThreatEngine(
		urls.NewExtractor(),
		checker,
		senderAnalyzer,
		heuristics.NewScanner(),
		classifier,
		truncator,
		analyzer,
		f.logger,
		core.EngineOptions{
			TotalBudget:       ec.TotalBudget,
			ReputationTimeout: ec.ReputationTimeout,
			SenderTimeout:     ec.SenderTimeout,
			ClassifierTimeout: ec.ClassifierTimeout,
			AnalyzerTimeout:   ec.AnalyzerTimeout,
			Version:           ec.Version,
		},
	)
}
