package core

// Classification is the verdict class of an email
type Classification string

const (
	ClassificationPhishing   Classification = "Phishing"
	ClassificationSuspicious Classification = "Suspicious"
	ClassificationSafe       Classification = "Safe"
)

// Label describes the mailbox label used when tagging a classified message
type Label struct {
	Name            string
	BackgroundColor string
	TextColor       string
}

// Label returns the mailbox label for the classification
func (c Classification) Label() Label {
	switch c {
	case ClassificationPhishing:
		return Label{Name: "Phishing", BackgroundColor: "#fb4c2f", TextColor: "#ffffff"}
	case ClassificationSuspicious:
		return Label{Name: "Suspicious", BackgroundColor: "#ffad47", TextColor: "#ffffff"}
	default:
		return Label{Name: "Safe", BackgroundColor: "#16a765", TextColor: "#ffffff"}
	}
}

// RiskLevel returns the coarse risk level for the classification
func (c Classification) RiskLevel() RiskLevel {
	switch c {
	case ClassificationPhishing:
		return RiskLevelHigh
	case ClassificationSuspicious:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// RemediationSteps returns the recommended actions for the classification
func (c Classification) RemediationSteps() []string {
	switch c {
	case ClassificationPhishing:
		return []string{"Move email to quarantine", "Notify the user", "Report the sender as phishing"}
	case ClassificationSuspicious:
		return []string{"Warn the user", "Verify the sender through another channel"}
	default:
		return []string{"No specific action required"}
	}
}

// Severity is the graded severity of a verdict or a single risk factor
type Severity string

const (
	SeverityHigh       Severity = "High"
	SeverityMediumHigh Severity = "MediumHigh"
	SeverityMedium     Severity = "Medium"
	SeverityMediumLow  Severity = "MediumLow"
	SeverityLow        Severity = "Low"
)

// ConfidenceLevel is how far the signals behind a verdict agree
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// RiskLevel is the coarse risk bucket persisted with a verdict
type RiskLevel string

const (
	RiskLevelHigh   RiskLevel = "HighRisk"
	RiskLevelMedium RiskLevel = "MediumRisk"
	RiskLevelLow    RiskLevel = "LowRisk"
)
