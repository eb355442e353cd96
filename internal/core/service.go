package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EngineOptions holds the latency budgets of the engine
type EngineOptions struct {
	TotalBudget       time.Duration
	ReputationTimeout time.Duration
	SenderTimeout     time.Duration
	ClassifierTimeout time.Duration
	AnalyzerTimeout   time.Duration
	Version           string
}

// ThreatEngine is the core service that turns an email into a ThreatVerdict
type ThreatEngine struct {
	extractor  URLExtractor
	checker    URLChecker
	sender     SenderAnalyzer
	scanner    ContentScanner
	classifier ClassifierOracle
	truncator  TextTruncator
	analyzer   ContentAnalyzer
	logger     *zap.Logger
	opts       EngineOptions
}

// NewThreatEngine creates a new threat engine.
// classifier, truncator and analyzer may be nil.
func NewThreatEngine(
	extractor URLExtractor,
	checker URLChecker,
	sender SenderAnalyzer,
	scanner ContentScanner,
	classifier ClassifierOracle,
	truncator TextTruncator,
	analyzer ContentAnalyzer,
	logger *zap.Logger,
	opts EngineOptions,
) *ThreatEngine {
	return &ThreatEngine{
		extractor:  extractor,
		checker:    checker,
		sender:     sender,
		scanner:    scanner,
		classifier: classifier,
		truncator:  truncator,
		analyzer:   analyzer,
		logger:     logger,
		opts:       opts,
	}
}

// signals is what the concurrent sources of one evaluation produce
type signals struct {
	urls        []URLVerdict
	domain      DomainProfile
	content     ContentIndicators
	probability float64
	modelErr    error
	truncation  TruncationInfo
	advanced    *AdvancedSignal
	advancedErr error
}

// Evaluate scores an email. It returns either a complete verdict, an *InputError,
// or the caller's context error when the call was cancelled.
func (e *ThreatEngine) Evaluate(ctx context.Context, email *Email) (*ThreatVerdict, error) {
	if err := validate(email); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation cancelled: %w", err)
	}

	start := time.Now()
	runCtx, cancel := withBudget(ctx, e.opts.TotalBudget)
	defer cancel()

	text := email.Text()
	var s signals

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		sctx, cancel := withBudget(gctx, e.opts.ReputationTimeout)
		defer cancel()
		s.urls = e.checker.CheckAll(sctx, e.extractor.Extract(email.Body))
		return nil
	})

	g.Go(func() error {
		sctx, cancel := withBudget(gctx, e.opts.SenderTimeout)
		defer cancel()
		s.domain = e.sender.Analyze(sctx, email.Sender)
		return nil
	})

	g.Go(func() error {
		s.content = e.scanner.Scan(text)
		return nil
	})

	g.Go(func() error {
		sctx, cancel := withBudget(gctx, e.opts.ClassifierTimeout)
		defer cancel()
		s.probability, s.truncation, s.modelErr = e.score(sctx, text)
		return nil
	})

	if e.analyzer != nil {
		g.Go(func() error {
			sctx, cancel := withBudget(gctx, e.opts.AnalyzerTimeout)
			defer cancel()
			adv, err := e.analyzer.Analyze(sctx, text)
			if err != nil {
				s.advancedErr = SignalError("content analyzer", err)
				return nil
			}
			s.advanced = adv
			return nil
		})
	}

	_ = g.Wait()

	// Signals gathered under a cancelled caller context are discarded
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation cancelled: %w", err)
	}

	verdict := e.assemble(email, &s)
	verdict.TechnicalDetails.AnalysisTime = time.Since(start)

	e.logger.Info("Email evaluated",
		zap.String("message_id", email.MessageID),
		zap.String("sender", email.Sender),
		zap.String("classification", string(verdict.Classification)),
		zap.String("severity", string(verdict.Severity)),
		zap.Float64("final_score", verdict.FinalScore),
		zap.String("confidence", string(verdict.Confidence.Level)),
		zap.Strings("degraded", verdict.TechnicalDetails.DegradedInputs),
		zap.Duration("elapsed", verdict.TechnicalDetails.AnalysisTime))

	return verdict, nil
}

// score truncates the text and asks the classifier for a probability
func (e *ThreatEngine) score(ctx context.Context, text string) (float64, TruncationInfo, error) {
	if e.classifier == nil {
		return 0, TruncationInfo{}, ErrNoClassifier
	}

	input := text
	var info TruncationInfo
	if e.truncator != nil {
		input, info = e.truncator.Truncate(text)
	}

	p, err := e.classifier.Score(ctx, input)
	if err != nil {
		return 0, info, &ClassifierError{Model: e.classifier.Name(), Err: SignalError("classifier", err)}
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, info, &ClassifierError{Model: e.classifier.Name(), Err: fmt.Errorf("probability %v out of range", p)}
	}
	return p, info, nil
}

func (e *ThreatEngine) assemble(email *Email, s *signals) *ThreatVerdict {
	modelAvailable := s.modelErr == nil
	breakdown, assessment := ScoreRisk(s.urls, s.content, s.domain, s.probability, modelAvailable)
	confidence := EstimateConfidence(breakdown, assessment)
	explanation := Explain(s.urls, s.content, s.domain, breakdown)

	details := TechnicalDetails{
		Breakdown:     breakdown,
		Contributions: assessment.Contributions,
		Truncation:    s.truncation,
		URLVerdicts:   s.urls,
		Domain:        s.domain,
		Content:       s.content,
		Advanced:      s.advanced,
		Metadata: EmailMetadata{
			MessageID:  email.MessageID,
			Sender:     email.Sender,
			Recipient:  email.Recipient,
			ReceivedAt: email.ReceivedAt,
		},
		AnalyzedAt:    time.Now(),
		EngineVersion: e.opts.Version,
	}
	if e.classifier != nil {
		details.ModelName = e.classifier.Name()
	}

	switch {
	case modelAvailable:
		details.ModelScore = &ModelScore{Probability: s.probability}
	case errors.Is(s.modelErr, ErrNoClassifier):
		// heuristics only by configuration
	default:
		details.ModelError = s.modelErr.Error()
		details.DegradedInputs = append(details.DegradedInputs, "classifier")
		e.logger.Warn("Classifier unavailable, scoring from heuristics only",
			zap.String("message_id", email.MessageID),
			zap.Error(s.modelErr))
	}

	if n := CountStatus(s.urls, URLError); n > 0 {
		details.DegradedInputs = append(details.DegradedInputs, "reputation")
		e.logger.Warn("URL reputation degraded",
			zap.String("message_id", email.MessageID),
			zap.Int("failed_urls", n))
	}
	if s.domain.LookupError != nil {
		details.DegradedInputs = append(details.DegradedInputs, "registration")
		e.logger.Warn("Sender domain lookup degraded",
			zap.String("message_id", email.MessageID),
			zap.String("reason", *s.domain.LookupError))
	}
	if s.advancedErr != nil {
		details.AdvancedError = s.advancedErr.Error()
		details.DegradedInputs = append(details.DegradedInputs, "content analyzer")
		e.logger.Warn("Content analyzer failed",
			zap.String("message_id", email.MessageID),
			zap.Error(s.advancedErr))
	}

	return &ThreatVerdict{
		Classification:   assessment.Classification,
		Severity:         assessment.Severity,
		RiskLevel:        assessment.Classification.RiskLevel(),
		FinalScore:       assessment.FinalScore,
		Confidence:       confidence,
		RiskFactors:      explanation.RiskFactors,
		Highlights:       explanation.Highlights,
		Summary:          explanation.Summary,
		Recommendation:   explanation.Recommendation,
		RemediationSteps: assessment.Classification.RemediationSteps(),
		TechnicalDetails: details,
	}
}

func validate(email *Email) error {
	if email == nil {
		return &InputError{Field: "email", Reason: "missing"}
	}
	if strings.TrimSpace(email.Sender) == "" {
		return &InputError{Field: "sender", Reason: "required"}
	}
	if strings.TrimSpace(email.Subject) == "" && strings.TrimSpace(email.Body) == "" {
		return &InputError{Field: "body", Reason: "subject and body are both empty"}
	}
	return nil
}

func withBudget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
