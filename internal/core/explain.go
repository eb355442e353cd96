package core

import (
	"fmt"
	"strings"
)

// Explain renders one risk factor per triggered indicator, plus a summary and
// recommendation chosen from the heuristic total score.
func Explain(verdicts []URLVerdict, content ContentIndicators, domain DomainProfile, breakdown RiskBreakdown) Explanation {
	var exp Explanation
	add := func(factor string, severity Severity) {
		exp.RiskFactors = append(exp.RiskFactors, factor)
		exp.Highlights = append(exp.Highlights, Highlight{Factor: factor, Severity: severity})
	}

	if len(content.UrgencyWords) > 0 {
		add("Uses urgency language: "+strings.Join(content.UrgencyWords, ", "), SeverityMedium)
	}
	if len(content.ThreatWords) > 0 {
		add("Contains threat language: "+strings.Join(content.ThreatWords, ", "), SeverityHigh)
	}
	if len(content.SensitiveInfoPatterns) > 0 {
		add("Requests sensitive information: "+strings.Join(content.SensitiveInfoPatterns, ", "), SeverityHigh)
	}
	if len(content.RewardWords) > 0 {
		add("Offers rewards or prizes: "+strings.Join(content.RewardWords, ", "), SeverityMedium)
	}

	if n := CountStatus(verdicts, URLMalicious); n > 0 {
		add(fmt.Sprintf("Contains %d malicious URL(s)", n), SeverityHigh)
	}
	if n := CountStatus(verdicts, URLSuspicious); n > 0 {
		add(fmt.Sprintf("Contains %d suspicious URL(s)", n), SeverityMedium)
	}

	if domain.IsSuspiciousName {
		add("Suspicious sender domain", SeverityHigh)
	}
	switch {
	case domain.IsNewDomain && domain.LookupError != nil:
		add("Sender's domain registration could not be verified (treated as newly registered)", SeverityMedium)
	case domain.IsNewDomain:
		add("Sender's domain was registered less than 30 days ago", SeverityHigh)
	case domain.LookupError != nil:
		add("Sender's domain registration could not be verified", SeverityMedium)
	}

	if content.HasGrammarIssues {
		add("Contains grammar and spelling issues typical of phishing emails", SeverityLow)
	}

	exp.Summary, exp.Recommendation = summarize(breakdown.TotalScore)
	return exp
}

func summarize(totalScore int) (string, string) {
	switch {
	case totalScore >= 60:
		return "This email shows multiple strong indicators of being a phishing attempt",
			"Do not interact with this email. Report it as phishing and delete it."
	case totalScore >= 40:
		return "This email shows several suspicious characteristics that warrant caution",
			"Exercise caution with this email. Do not click any links or download attachments."
	case totalScore >= 20:
		return "This email shows some suspicious elements but may be legitimate",
			"Proceed with caution. Verify the sender through other means if unsure."
	default:
		return "This email shows few or no signs of being malicious",
			"This email appears to be legitimate, but always be cautious with unexpected messages."
	}
}
