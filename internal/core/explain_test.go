package core

import (
	"strings"
	"testing"
)

func TestExplainOneFactorPerCategory(t *testing.T) {
	prefixes := []string{
		"Uses urgency language",
		"Contains threat language",
		"Requests sensitive information",
		"Offers rewards",
	}

	// every combination of populated and empty indicator lists
	for mask := 0; mask < 16; mask++ {
		var c ContentIndicators
		if mask&1 != 0 {
			c.UrgencyWords = []string{"urgent", "verify"}
		}
		if mask&2 != 0 {
			c.ThreatWords = []string{"blocked"}
		}
		if mask&4 != 0 {
			c.SensitiveInfoPatterns = []string{"password", "credit.?card"}
		}
		if mask&8 != 0 {
			c.RewardWords = []string{"prize"}
		}

		exp := Explain(nil, c, DomainProfile{}, RiskBreakdown{})
		for bit, prefix := range prefixes {
			n := 0
			for _, f := range exp.RiskFactors {
				if strings.HasPrefix(f, prefix) {
					n++
				}
			}
			want := 0
			if mask&(1<<bit) != 0 {
				want = 1
			}
			if n != want {
				t.Errorf("mask %04b: %d factors starting with %q, want %d", mask, n, prefix, want)
			}
		}
		if len(exp.RiskFactors) != len(exp.Highlights) {
			t.Errorf("mask %04b: %d factors but %d highlights", mask, len(exp.RiskFactors), len(exp.Highlights))
		}
	}
}

func TestExplainOrderAndSeverity(t *testing.T) {
	verdicts := []URLVerdict{
		{Status: URLMalicious},
		{Status: URLMalicious},
		{Status: URLSuspicious},
	}
	content := ContentIndicators{
		UrgencyWords:     []string{"urgent"},
		HasGrammarIssues: true,
	}
	domain := DomainProfile{IsSuspiciousName: true, IsNewDomain: true, LookupError: strPtr("timeout")}

	exp := Explain(verdicts, content, domain, RiskBreakdown{TotalScore: 70})
	want := []Highlight{
		{"Uses urgency language: urgent", SeverityMedium},
		{"Contains 2 malicious URL(s)", SeverityHigh},
		{"Contains 1 suspicious URL(s)", SeverityMedium},
		{"Suspicious sender domain", SeverityHigh},
		{"Sender's domain registration could not be verified (treated as newly registered)", SeverityMedium},
		{"Contains grammar and spelling issues typical of phishing emails", SeverityLow},
	}
	if len(exp.Highlights) != len(want) {
		t.Fatalf("got %d highlights, want %d: %v", len(exp.Highlights), len(want), exp.RiskFactors)
	}
	for i := range want {
		if exp.Highlights[i] != want[i] {
			t.Errorf("highlight %d = %+v, want %+v", i, exp.Highlights[i], want[i])
		}
	}
	if !strings.Contains(exp.Summary, "strong indicators") {
		t.Errorf("unexpected summary %q", exp.Summary)
	}
}

func TestExplainLookupFailureOnlyWhenNotNew(t *testing.T) {
	exp := Explain(nil, ContentIndicators{}, DomainProfile{LookupError: strPtr("rdap 503")}, RiskBreakdown{})
	if len(exp.RiskFactors) != 1 || exp.RiskFactors[0] != "Sender's domain registration could not be verified" {
		t.Errorf("RiskFactors = %v", exp.RiskFactors)
	}
}

func TestExplainNewDomainWording(t *testing.T) {
	tests := []struct {
		name   string
		domain DomainProfile
		want   Highlight
	}{
		{
			name:   "registration observed",
			domain: DomainProfile{IsNewDomain: true},
			want:   Highlight{"Sender's domain was registered less than 30 days ago", SeverityHigh},
		},
		{
			name:   "lookup failed",
			domain: DomainProfile{IsNewDomain: true, LookupError: strPtr("whois: connection refused")},
			want:   Highlight{"Sender's domain registration could not be verified (treated as newly registered)", SeverityMedium},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := Explain(nil, ContentIndicators{}, tt.domain, RiskBreakdown{})
			if len(exp.Highlights) != 1 || exp.Highlights[0] != tt.want {
				t.Errorf("Highlights = %+v, want [%+v]", exp.Highlights, tt.want)
			}
		})
	}
}

func TestExplainSummaryBands(t *testing.T) {
	tests := []struct {
		total int
		want  string
	}{
		{0, "few or no signs"},
		{19, "few or no signs"},
		{20, "some suspicious elements"},
		{40, "several suspicious characteristics"},
		{60, "multiple strong indicators"},
	}
	for _, tt := range tests {
		exp := Explain(nil, ContentIndicators{}, DomainProfile{}, RiskBreakdown{TotalScore: tt.total})
		if !strings.Contains(exp.Summary, tt.want) {
			t.Errorf("total %d: summary %q does not contain %q", tt.total, exp.Summary, tt.want)
		}
		if exp.Recommendation == "" {
			t.Errorf("total %d: empty recommendation", tt.total)
		}
	}
}
