package core

import (
	"time"
)

// Email represents the normalized input for one scoring call
type Email struct {
	MessageID  string
	Subject    string
	Body       string
	Sender     string
	Recipient  string
	ReceivedAt time.Time
}

// Text returns the subject and body joined the way the classifier sees them
func (e *Email) Text() string {
	return e.Subject + " " + e.Body
}

// URLStatus is the reputation status of a single URL
type URLStatus string

const (
	URLMalicious  URLStatus = "Malicious"
	URLSuspicious URLStatus = "Suspicious"
	URLSafe       URLStatus = "Safe"
	URLUnknown    URLStatus = "Unknown"
	URLError      URLStatus = "Error"
)

// URLVerdict is the reputation result for one distinct URL
type URLVerdict struct {
	URL    string    `json:"url" yaml:"url"`
	Status URLStatus `json:"status" yaml:"status"`
	Detail string    `json:"detail" yaml:"detail"`
}

// AnalysisStats holds the last-analysis counters returned by a reputation oracle
type AnalysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Harmless   int `json:"harmless"`
	Undetected int `json:"undetected"`
}

// RegistrationRecord is what a domain registration lookup returns
type RegistrationRecord struct {
	Domain       string    `json:"domain"`
	CreationDate time.Time `json:"creation_date"`
	Registrar    string    `json:"registrar"`
	Source       string    `json:"source"`
}

// DomainProfile describes the sender's domain
type DomainProfile struct {
	Domain              *string `json:"domain" yaml:"domain"`
	TLD                 string  `json:"tld" yaml:"tld"`
	IsSuspiciousName    bool    `json:"is_suspicious_name" yaml:"is_suspicious_name"`
	IsFreeEmailProvider bool    `json:"is_free_email_provider" yaml:"is_free_email_provider"`
	AgeDays             *int    `json:"age_days" yaml:"age_days"`
	IsNewDomain         bool    `json:"is_new_domain" yaml:"is_new_domain"`
	Registrar           *string `json:"registrar" yaml:"registrar"`
	LookupError         *string `json:"lookup_error" yaml:"lookup_error"`
}

// ContentIndicators holds the matches of the offline content heuristics
type ContentIndicators struct {
	UrgencyWords          []string `json:"urgency_words" yaml:"urgency_words"`
	ThreatWords           []string `json:"threat_words" yaml:"threat_words"`
	RewardWords           []string `json:"reward_words" yaml:"reward_words"`
	SensitiveInfoPatterns []string `json:"sensitive_info_patterns" yaml:"sensitive_info_patterns"`
	HasGrammarIssues      bool     `json:"has_grammar_issues" yaml:"has_grammar_issues"`
}

// ManipulationIndicator is one flagged manipulation signal from NLP enrichment
type ManipulationIndicator struct {
	Type       string  `json:"type" yaml:"type"`
	Detail     string  `json:"detail" yaml:"detail"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// AdvancedSignal is the optional NLP enrichment result
type AdvancedSignal struct {
	PrimaryIntent          string                  `json:"primary_intent" yaml:"primary_intent"`
	IntentConfidence       float64                 `json:"intent_confidence" yaml:"intent_confidence"`
	AllIntents             map[string]float64      `json:"all_intents" yaml:"all_intents"`
	DominantEmotion        string                  `json:"dominant_emotion" yaml:"dominant_emotion"`
	EmotionConfidence      float64                 `json:"emotion_confidence" yaml:"emotion_confidence"`
	Sentiment              string                  `json:"sentiment" yaml:"sentiment"`
	SentimentConfidence    float64                 `json:"sentiment_confidence" yaml:"sentiment_confidence"`
	Coherence              float64                 `json:"coherence" yaml:"coherence"`
	Formality              float64                 `json:"formality" yaml:"formality"`
	RiskScore              float64                 `json:"risk_score" yaml:"risk_score"`
	ManipulationIndicators []ManipulationIndicator `json:"manipulation_indicators" yaml:"manipulation_indicators"`
	RiskFactors            []string                `json:"risk_factors" yaml:"risk_factors"`
}

// ModelScore is the classifier's phishing probability
type ModelScore struct {
	Probability float64 `json:"probability" yaml:"probability"`
}

// RiskBreakdown holds the capped heuristic sub-scores
type RiskBreakdown struct {
	URLRisk     int `json:"url_risk" yaml:"url_risk"`
	ContentRisk int `json:"content_risk" yaml:"content_risk"`
	DomainRisk  int `json:"domain_risk" yaml:"domain_risk"`
	TotalScore  int `json:"total_score" yaml:"total_score"`
}

// Contributions explains how the final score was composed
type Contributions struct {
	ModelContribution float64            `json:"model_contribution" yaml:"model_contribution"`
	RiskContribution  float64            `json:"risk_contribution" yaml:"risk_contribution"`
	SeverityFactors   map[string]float64 `json:"severity_factors" yaml:"severity_factors"`
}

// CombinedAssessment is the banded result of the risk scorer
type CombinedAssessment struct {
	FinalScore     float64        `json:"final_score" yaml:"final_score"`
	Classification Classification `json:"classification" yaml:"classification"`
	Severity       Severity       `json:"severity" yaml:"severity"`
	Contributions  Contributions  `json:"contributions" yaml:"contributions"`
}

// ConfidenceResult measures how much the individual signals agree
type ConfidenceResult struct {
	Level                 ConfidenceLevel `json:"level" yaml:"level"`
	Score                 float64         `json:"score" yaml:"score"`
	SupportingEvidence    int             `json:"supporting_evidence" yaml:"supporting_evidence"`
	ContradictingEvidence int             `json:"contradicting_evidence" yaml:"contradicting_evidence"`
	Explanation           string          `json:"explanation" yaml:"explanation"`
}

// Highlight is a risk factor paired with its own severity
type Highlight struct {
	Factor   string   `json:"factor" yaml:"factor"`
	Severity Severity `json:"severity" yaml:"severity"`
}

// Explanation is the human-readable rendering of the triggered indicators
type Explanation struct {
	RiskFactors    []string
	Highlights     []Highlight
	Summary        string
	Recommendation string
}

// TruncationInfo records what the classifier input truncation did
type TruncationInfo struct {
	OriginalTokens  int  `json:"original_tokens" yaml:"original_tokens"`
	TruncatedTokens int  `json:"truncated_tokens" yaml:"truncated_tokens"`
	WasTruncated    bool `json:"was_truncated" yaml:"was_truncated"`
}

// EmailMetadata is the attribution part of the technical details
type EmailMetadata struct {
	MessageID  string    `json:"message_id" yaml:"message_id"`
	Sender     string    `json:"sender" yaml:"sender"`
	Recipient  string    `json:"recipient" yaml:"recipient"`
	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`
}

// TechnicalDetails carries the raw evidence behind a verdict
type TechnicalDetails struct {
	Breakdown      RiskBreakdown     `json:"risk_scores" yaml:"risk_scores"`
	Contributions  Contributions     `json:"score_breakdown" yaml:"score_breakdown"`
	ModelName      string            `json:"model_name" yaml:"model_name"`
	ModelScore     *ModelScore       `json:"model_score" yaml:"model_score"`
	ModelError     string            `json:"model_error,omitempty" yaml:"model_error,omitempty"`
	Truncation     TruncationInfo    `json:"text_length" yaml:"text_length"`
	URLVerdicts    []URLVerdict      `json:"urls_analyzed" yaml:"urls_analyzed"`
	Domain         DomainProfile     `json:"sender_analysis" yaml:"sender_analysis"`
	Content        ContentIndicators `json:"content_analysis" yaml:"content_analysis"`
	Advanced       *AdvancedSignal   `json:"advanced_analysis,omitempty" yaml:"advanced_analysis,omitempty"`
	AdvancedError  string            `json:"advanced_error,omitempty" yaml:"advanced_error,omitempty"`
	Metadata       EmailMetadata     `json:"email_metadata" yaml:"email_metadata"`
	AnalysisTime   time.Duration     `json:"analysis_time" yaml:"analysis_time"`
	AnalyzedAt     time.Time         `json:"analyzed_at" yaml:"analyzed_at"`
	EngineVersion  string            `json:"engine_version" yaml:"engine_version"`
	DegradedInputs []string          `json:"degraded_inputs,omitempty" yaml:"degraded_inputs,omitempty"`
}

// ThreatVerdict is the engine's only external output
type ThreatVerdict struct {
	Classification   Classification   `json:"classification" yaml:"classification"`
	Severity         Severity         `json:"severity" yaml:"severity"`
	RiskLevel        RiskLevel        `json:"risk_level" yaml:"risk_level"`
	FinalScore       float64          `json:"final_score" yaml:"final_score"`
	Confidence       ConfidenceResult `json:"confidence" yaml:"confidence"`
	RiskFactors      []string         `json:"risk_factors" yaml:"risk_factors"`
	Highlights       []Highlight      `json:"highlights" yaml:"highlights"`
	Summary          string           `json:"summary" yaml:"summary"`
	Recommendation   string           `json:"recommendation" yaml:"recommendation"`
	RemediationSteps []string         `json:"remediation_steps" yaml:"remediation_steps"`
	TechnicalDetails TechnicalDetails `json:"technical_details" yaml:"technical_details"`
}

// IsThreat reports whether the verdict is anything other than Safe
func (v *ThreatVerdict) IsThreat() bool {
	return v.Classification != ClassificationSafe
}
