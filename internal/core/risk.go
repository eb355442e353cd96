package core

import "math"

const (
	maxURLRisk     = 40
	maxContentRisk = 40
	maxDomainRisk  = 20

	modelWeight = 0.4
	riskWeight  = 0.6
)

// Severity factor keys
const (
	FactorURL     = "url_severity"
	FactorContent = "content_severity"
	FactorDomain  = "domain_severity"
	FactorModel   = "model_severity"
)

// ScoreRisk computes the capped heuristic breakdown and the combined, banded assessment.
// modelAvailable false means the classifier failed and its probability is ignored.
func ScoreRisk(verdicts []URLVerdict, content ContentIndicators, domain DomainProfile, probability float64, modelAvailable bool) (RiskBreakdown, CombinedAssessment) {
	breakdown := Breakdown(verdicts, content, domain)

	if !modelAvailable {
		probability = 0
	}
	probability = clamp(probability, 0, 1)

	modelPart := probability * 100 * modelWeight
	riskPart := float64(breakdown.TotalScore) * riskWeight
	finalScore := round2(modelPart + riskPart)

	factors := map[string]float64{
		FactorURL:     round2(float64(breakdown.URLRisk) / maxURLRisk * 100),
		FactorContent: round2(float64(breakdown.ContentRisk) / maxContentRisk * 100),
		FactorDomain:  round2(float64(breakdown.DomainRisk) / maxDomainRisk * 100),
	}
	if modelAvailable {
		factors[FactorModel] = round2(probability * 100)
	}

	classification, severity := Band(finalScore)
	return breakdown, CombinedAssessment{
		FinalScore:     finalScore,
		Classification: classification,
		Severity:       severity,
		Contributions: Contributions{
			ModelContribution: round2(modelPart),
			RiskContribution:  round2(riskPart),
			SeverityFactors:   factors,
		},
	}
}

// Breakdown computes the three capped heuristic sub-scores and their sum
func Breakdown(verdicts []URLVerdict, content ContentIndicators, domain DomainProfile) RiskBreakdown {
	malicious := CountStatus(verdicts, URLMalicious)
	urlRisk := min(maxURLRisk, 20*malicious)

	contentRisk := 0
	if len(content.UrgencyWords) > 0 {
		contentRisk += 10
	}
	if len(content.ThreatWords) > 0 {
		contentRisk += 15
	}
	if len(content.SensitiveInfoPatterns) > 0 {
		contentRisk += 20
	}
	if content.HasGrammarIssues {
		contentRisk += 5
	}
	contentRisk = min(maxContentRisk, contentRisk)

	domainRisk := 0
	if domain.IsSuspiciousName {
		domainRisk += 10
	}
	switch {
	case domain.IsNewDomain:
		domainRisk += 10
	case domain.LookupError != nil:
		domainRisk += 5
	}
	domainRisk = min(maxDomainRisk, domainRisk)

	return RiskBreakdown{
		URLRisk:     urlRisk,
		ContentRisk: contentRisk,
		DomainRisk:  domainRisk,
		TotalScore:  urlRisk + contentRisk + domainRisk,
	}
}

// Band maps a final score to its classification and severity.
// Bands are half-open so boundary values land in the higher band.
func Band(finalScore float64) (Classification, Severity) {
	switch {
	case finalScore >= 60:
		return ClassificationPhishing, SeverityHigh
	case finalScore >= 50:
		return ClassificationSuspicious, SeverityMediumHigh
	case finalScore >= 40:
		return ClassificationSuspicious, SeverityMedium
	case finalScore >= 30:
		return ClassificationSuspicious, SeverityMediumLow
	default:
		return ClassificationSafe, SeverityLow
	}
}

// CountStatus counts the verdicts with the given status
func CountStatus(verdicts []URLVerdict, status URLStatus) int {
	n := 0
	for _, v := range verdicts {
		if v.Status == status {
			n++
		}
	}
	return n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
