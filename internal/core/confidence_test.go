package core

import "testing"

func TestEstimateConfidenceLevels(t *testing.T) {
	tests := []struct {
		name           string
		factors        map[string]float64
		class          Classification
		wantLevel      ConfidenceLevel
		wantSupport    int
		wantContradict int
	}{
		{
			name:        "signals agree on safe",
			factors:     map[string]float64{FactorURL: 0, FactorContent: 0, FactorDomain: 0, FactorModel: 10},
			class:       ClassificationSafe,
			wantLevel:   ConfidenceHigh,
			wantSupport: 4,
		},
		{
			name:           "one strong signal",
			factors:        map[string]float64{FactorURL: 50, FactorContent: 0, FactorDomain: 0, FactorModel: 0},
			class:          ClassificationSafe,
			wantLevel:      ConfidenceMedium,
			wantSupport:    3,
			wantContradict: 1,
		},
		{
			name:           "signals conflict",
			factors:        map[string]float64{FactorURL: 100, FactorContent: 0, FactorDomain: 0, FactorModel: 0},
			class:          ClassificationSuspicious,
			wantLevel:      ConfidenceLow,
			wantSupport:    1,
			wantContradict: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := CombinedAssessment{Classification: tt.class, Contributions: Contributions{SeverityFactors: tt.factors}}
			got := EstimateConfidence(RiskBreakdown{}, a)
			if got.Level != tt.wantLevel {
				t.Errorf("Level = %s, want %s", got.Level, tt.wantLevel)
			}
			if got.SupportingEvidence != tt.wantSupport || got.ContradictingEvidence != tt.wantContradict {
				t.Errorf("evidence = %d/%d, want %d/%d", got.SupportingEvidence, got.ContradictingEvidence, tt.wantSupport, tt.wantContradict)
			}
			if got.Score < 0 || got.Score > 100 {
				t.Errorf("Score %v outside [0,100]", got.Score)
			}
			if got.Explanation == "" {
				t.Error("missing explanation")
			}
		})
	}
}

func TestEstimateConfidenceScore(t *testing.T) {
	a := CombinedAssessment{
		Classification: ClassificationSafe,
		Contributions:  Contributions{SeverityFactors: map[string]float64{FactorURL: 0, FactorContent: 0, FactorDomain: 0, FactorModel: 10}},
	}
	// sigma = sqrt(18.75)
	if got := EstimateConfidence(RiskBreakdown{}, a).Score; got != 91.34 {
		t.Errorf("Score = %v, want 91.34", got)
	}
}

func TestEstimateConfidenceFallsBackToBreakdown(t *testing.T) {
	b := RiskBreakdown{URLRisk: 40, ContentRisk: 40, DomainRisk: 20, TotalScore: 100}
	got := EstimateConfidence(b, CombinedAssessment{Classification: ClassificationPhishing})
	if got.Level != ConfidenceHigh || got.Score != 100 {
		t.Errorf("got %s/%v, want High/100", got.Level, got.Score)
	}
	if got.SupportingEvidence != 3 {
		t.Errorf("SupportingEvidence = %d, want 3", got.SupportingEvidence)
	}
}
