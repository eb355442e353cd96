package core

import (
	"context"
	"time"
)

// ClassifierOracle defines the interface for the pretrained phishing classifier
type ClassifierOracle interface {
	// Score returns the phishing probability of already truncated text
	Score(ctx context.Context, text string) (float64, error)

	// Name identifies the model for technical details
	Name() string
}

// Tokenizer defines the tokenizer that bounds classifier input
type Tokenizer interface {
	// Tokenize splits text into model tokens
	Tokenize(text string) []string

	// Detokenize joins tokens back into text
	Detokenize(tokens []string) string

	// CountTokens counts tokens including the model's special tokens
	CountTokens(text string) int
}

// ReputationOracle defines the interface for the external URL reputation service
type ReputationOracle interface {
	// LookupURL returns the last analysis statistics for a URL id, or ErrNotFound
	LookupURL(ctx context.Context, urlID string) (*AnalysisStats, error)

	// SubmitURL queues a URL for analysis
	SubmitURL(ctx context.Context, url string) error
}

// RegistrationLookup defines the interface for domain registration data (WHOIS/RDAP)
type RegistrationLookup interface {
	// Lookup returns the registration record of a domain
	Lookup(ctx context.Context, domain string) (*RegistrationRecord, error)
}

// URLExtractor finds candidate URLs in body text
type URLExtractor interface {
	Extract(body string) []string
}

// URLChecker resolves the reputation of a batch of URLs
type URLChecker interface {
	// CheckAll never fails; lookup failures become URLError verdicts
	CheckAll(ctx context.Context, urls []string) []URLVerdict
}

// SenderAnalyzer profiles a sender address
type SenderAnalyzer interface {
	// Analyze never fails; failures are recorded in DomainProfile.LookupError
	Analyze(ctx context.Context, address string) DomainProfile
}

// ContentScanner runs the offline content heuristics
type ContentScanner interface {
	Scan(text string) ContentIndicators
}

// ContentAnalyzer is the optional NLP enrichment stage
type ContentAnalyzer interface {
	Analyze(ctx context.Context, text string) (*AdvancedSignal, error)
}

// TextTruncator bounds classifier input to the token budget
type TextTruncator interface {
	Truncate(text string) (string, TruncationInfo)
}

// VerdictSink persists a verdict for a message
type VerdictSink interface {
	Save(ctx context.Context, messageID string, verdict *ThreatVerdict) error
}

// CacheEntry is a cached oracle response
type CacheEntry struct {
	Key       string
	Value     []byte
	StoredAt  time.Time
	ExpiresAt time.Time
}

// CacheRepository defines the interface for the external reputation and registration caches
type CacheRepository interface {
	// Get retrieves a cached entry, or ErrNotFound
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
