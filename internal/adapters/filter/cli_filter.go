package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"github.com/mikey/threat-verdict/internal/ports"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Output formats supported by the CLI filter
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var _ ports.EmailFilter = (*CliFilter)(nil)

// CliFilter implements a command-line interface for threat scoring
type CliFilter struct {
	evaluator ports.Evaluator
	out       io.Writer
	format    string
	logger    *zap.Logger
	verbose   bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(evaluator ports.Evaluator, out io.Writer, format string, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return &CliFilter{
		evaluator: evaluator,
		out:       out,
		format:    format,
		logger:    logger,
		verbose:   verbose,
	}, nil
}

// ProcessEmail evaluates an email and writes the verdict
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ThreatVerdict, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.Sender))

	startTime := time.Now()
	verdict, err := f.evaluator.Evaluate(ctx, email)
	if err != nil {
		f.logger.Error("Failed to evaluate email", zap.Error(err))
		return nil, err
	}
	f.logger.Debug("Evaluation finished", zap.Duration("duration", time.Since(startTime)))

	if err := f.Render(email, verdict); err != nil {
		return nil, err
	}
	return verdict, nil
}

// Render writes a verdict in the configured format
func (f *CliFilter) Render(email *core.Email, verdict *core.ThreatVerdict) error {
	switch f.format {
	case FormatJSON:
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return enc.Encode(verdict)
	case FormatYAML:
		enc := yaml.NewEncoder(f.out)
		enc.SetIndent(2)
		if err := enc.Encode(verdict); err != nil {
			return err
		}
		return enc.Close()
	default:
		return f.renderText(email, verdict)
	}
}

func (f *CliFilter) renderText(email *core.Email, v *core.ThreatVerdict) error {
	var b strings.Builder

	if email != nil {
		fmt.Fprintf(&b, "\n=== Email Summary ===\n")
		fmt.Fprintf(&b, "From: %s\n", email.Sender)
		fmt.Fprintf(&b, "To: %s\n", email.Recipient)
		fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
		fmt.Fprintf(&b, "Body length: %d bytes\n", len(email.Body))
		if f.verbose {
			preview := email.Body
			if len(preview) > 500 {
				preview = preview[:500] + "..."
			}
			fmt.Fprintf(&b, "\nBody preview:\n%s\n", preview)
		}
	}

	label := v.Classification.Label()
	fmt.Fprintf(&b, "\n=== Verdict ===\n")
	fmt.Fprintf(&b, "Classification: %s (%s)\n", v.Classification, label.Name)
	fmt.Fprintf(&b, "Severity: %s\n", v.Severity)
	fmt.Fprintf(&b, "Risk level: %s\n", v.RiskLevel)
	fmt.Fprintf(&b, "Final score: %.2f\n", v.FinalScore)
	fmt.Fprintf(&b, "Confidence: %s (%.2f)\n", v.Confidence.Level, v.Confidence.Score)
	fmt.Fprintf(&b, "Summary: %s\n", v.Summary)
	fmt.Fprintf(&b, "Recommendation: %s\n", v.Recommendation)

	if len(v.Highlights) > 0 {
		fmt.Fprintf(&b, "\nRisk factors:\n")
		for _, h := range v.Highlights {
			fmt.Fprintf(&b, "  [%s] %s\n", h.Severity, h.Factor)
		}
	}
	if len(v.RemediationSteps) > 0 {
		fmt.Fprintf(&b, "\nRemediation:\n")
		for i, step := range v.RemediationSteps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}

	td := v.TechnicalDetails
	if f.verbose {
		fmt.Fprintf(&b, "\n=== Details ===\n")
		fmt.Fprintf(&b, "Risk scores: url=%d content=%d domain=%d total=%d\n",
			td.Breakdown.URLRisk, td.Breakdown.ContentRisk, td.Breakdown.DomainRisk, td.Breakdown.TotalScore)
		if td.ModelScore != nil {
			fmt.Fprintf(&b, "Model: %s (p=%.4f)\n", td.ModelName, td.ModelScore.Probability)
		}
		for _, u := range td.URLVerdicts {
			fmt.Fprintf(&b, "URL: %s -> %s\n", u.URL, u.Status)
		}
		if td.Domain.Domain != nil {
			fmt.Fprintf(&b, "Sender domain: %s\n", *td.Domain.Domain)
		}
		if td.Domain.AgeDays != nil {
			fmt.Fprintf(&b, "Domain age: %d days\n", *td.Domain.AgeDays)
		}
		if td.Advanced != nil {
			fmt.Fprintf(&b, "Primary intent: %s (%.2f)\n", td.Advanced.PrimaryIntent, td.Advanced.IntentConfidence)
		}
		fmt.Fprintf(&b, "Analysis time: %v\n", td.AnalysisTime)
	}
	if len(td.DegradedInputs) > 0 {
		fmt.Fprintf(&b, "Degraded inputs: %s\n", strings.Join(td.DegradedInputs, ", "))
	}

	_, err := io.WriteString(f.out, b.String())
	return err
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
