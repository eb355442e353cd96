package reputation

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options configures the reputation service
type Options struct {
	// SubmitDelay is how long to wait after submitting an unknown URL before re-querying
	SubmitDelay       time.Duration
	MaxConcurrency    int
	RequestsPerMinute int
}

// Service resolves URL reputation through a ReputationOracle
type Service struct {
	oracle         core.ReputationOracle
	limiter        *rate.Limiter
	submitDelay    time.Duration
	maxConcurrency int
	logger         *zap.Logger
}

// NewService creates a new reputation service. The rate limiter is shared by
// every call made through the service.
func NewService(oracle core.ReputationOracle, opts Options, logger *zap.Logger) *Service {
	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}
	concurrency := opts.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &Service{
		oracle:         oracle,
		limiter:        rate.NewLimiter(limit, 1),
		submitDelay:    opts.SubmitDelay,
		maxConcurrency: concurrency,
		logger:         logger,
	}
}

// URLID returns the oracle identifier of a URL: unpadded URL-safe base64
func URLID(url string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(url))
}

// Check resolves the reputation of one URL. Failures become URLError verdicts.
func (s *Service) Check(ctx context.Context, url string) core.URLVerdict {
	if url == "" {
		return core.URLVerdict{URL: url, Status: core.URLError, Detail: "Invalid URL provided"}
	}

	id := URLID(url)
	stats, err := s.lookup(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		if err := s.submit(ctx, url); err != nil {
			return s.failed(url, "Failed to submit URL for analysis", err)
		}

		select {
		case <-time.After(s.submitDelay):
		case <-ctx.Done():
			return s.failed(url, "Error analyzing URL", ctx.Err())
		}

		stats, err = s.lookup(ctx, id)
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return core.URLVerdict{URL: url, Status: core.URLUnknown, Detail: "Could not determine URL status."}
	case err != nil:
		return s.failed(url, "Error analyzing URL", err)
	}

	return classify(url, stats)
}

// CheckAll resolves every distinct URL once, with bounded concurrency.
// The result holds one verdict per distinct URL in first-seen order.
func (s *Service) CheckAll(ctx context.Context, urls []string) []core.URLVerdict {
	distinct := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		distinct = append(distinct, u)
	}

	verdicts := make([]core.URLVerdict, len(distinct))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, u := range distinct {
		g.Go(func() error {
			verdicts[i] = s.Check(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	return verdicts
}

func (s *Service) lookup(ctx context.Context, id string) (*core.AnalysisStats, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	stats, err := s.oracle.LookupURL(ctx, id)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, core.ErrNotFound
	}
	return stats, nil
}

func (s *Service) submit(ctx context.Context, url string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return s.oracle.SubmitURL(ctx, url)
}

func (s *Service) failed(url, what string, err error) core.URLVerdict {
	err = core.SignalError("url reputation", err)
	s.logger.Warn("URL reputation check failed",
		zap.String("url", url),
		zap.Error(err))
	return core.URLVerdict{URL: url, Status: core.URLError, Detail: fmt.Sprintf("%s: %v", what, err)}
}

func classify(url string, stats *core.AnalysisStats) core.URLVerdict {
	switch {
	case stats.Malicious > 0:
		return core.URLVerdict{URL: url, Status: core.URLMalicious,
			Detail: fmt.Sprintf("%d security vendors flagged this URL as malicious.", stats.Malicious)}
	case stats.Suspicious > 0:
		return core.URLVerdict{URL: url, Status: core.URLSuspicious,
			Detail: fmt.Sprintf("%d security vendors flagged this URL as suspicious.", stats.Suspicious)}
	case stats.Harmless > 0:
		return core.URLVerdict{URL: url, Status: core.URLSafe,
			Detail: fmt.Sprintf("%d security vendors marked this URL as safe.", stats.Harmless)}
	default:
		return core.URLVerdict{URL: url, Status: core.URLUnknown, Detail: "Could not determine URL status."}
	}
}

// Disabled is the URLChecker used when reputation lookups are switched off.
// Every URL resolves to Unknown.
type Disabled struct{}

func (Disabled) CheckAll(ctx context.Context, urls []string) []core.URLVerdict {
	verdicts := make([]core.URLVerdict, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		verdicts = append(verdicts, core.URLVerdict{URL: u, Status: core.URLUnknown, Detail: "Reputation lookups disabled."})
	}
	return verdicts
}
