package core

import (
	"math"
	"sort"
)

const (
	highConfidenceSpread   = 15.0
	mediumConfidenceSpread = 30.0
)

// EstimateConfidence measures how much the severity factors behind an assessment agree.
// A tight spread means the signals tell the same story.
func EstimateConfidence(breakdown RiskBreakdown, assessment CombinedAssessment) ConfidenceResult {
	factors := assessment.Contributions.SeverityFactors
	if len(factors) == 0 {
		factors = map[string]float64{
			FactorURL:     float64(breakdown.URLRisk) / maxURLRisk * 100,
			FactorContent: float64(breakdown.ContentRisk) / maxContentRisk * 100,
			FactorDomain:  float64(breakdown.DomainRisk) / maxDomainRisk * 100,
		}
	}

	keys := make([]string, 0, len(factors))
	for k := range factors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]float64, 0, len(keys))
	for _, k := range keys {
		values = append(values, factors[k])
	}
	spread := stdDev(values)

	var level ConfidenceLevel
	switch {
	case spread < highConfidenceSpread:
		level = ConfidenceHigh
	case spread < mediumConfidenceSpread:
		level = ConfidenceMedium
	default:
		level = ConfidenceLow
	}

	threat := assessment.Classification != ClassificationSafe
	supporting, contradicting := 0, 0
	for _, v := range values {
		if (v >= 50) == threat {
			supporting++
		} else {
			contradicting++
		}
	}

	return ConfidenceResult{
		Level:                 level,
		Score:                 round2(clamp(100-2*spread, 0, 100)),
		SupportingEvidence:    supporting,
		ContradictingEvidence: contradicting,
		Explanation:           confidenceExplanation(level, assessment.Classification),
	}
}

func confidenceExplanation(level ConfidenceLevel, classification Classification) string {
	switch level {
	case ConfidenceHigh:
		if classification == ClassificationSafe {
			return "Multiple strong indicators of legitimacy with very little suspicious activity"
		}
		return "Multiple strong indicators of phishing with very little contradicting evidence"
	case ConfidenceMedium:
		return "Clear evidence supports the classification, but some factors are inconclusive"
	default:
		return "Mixed or weak evidence makes this classification less certain"
	}
}

// stdDev is the population standard deviation
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
