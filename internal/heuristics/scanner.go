package heuristics

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikey/threat-verdict/internal/core"
	"golang.org/x/text/unicode/norm"
)

var (
	urgencyWords = []string{"urgent", "immediate", "action required", "account suspended", "verify"}
	threatWords  = []string{"suspended", "terminated", "blocked", "unauthorized", "suspicious"}
	rewardWords  = []string{"winner", "won", "prize", "reward", "congratulations"}

	sensitivePatterns = []string{
		`password`,
		`credit.?card`,
		`ssn|social.?security`,
		`bank.?account`,
		`verify.?identity`,
	}
)

var (
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
	tokenPattern    = regexp.MustCompile(`[\p{L}\p{N}_']+|[^\p{L}\p{N}_'\s]`)
)

const (
	minSentencesForGrammar = 3
	minSentenceTokens      = 3
)

type sensitiveMatcher struct {
	name string
	re   *regexp.Regexp
}

// Scanner runs the offline content heuristics over email text
type Scanner struct {
	sensitive []sensitiveMatcher
}

// NewScanner creates a new Scanner
func NewScanner() *Scanner {
	matchers := make([]sensitiveMatcher, 0, len(sensitivePatterns))
	for _, p := range sensitivePatterns {
		matchers = append(matchers, sensitiveMatcher{name: p, re: regexp.MustCompile(`(?i)` + p)})
	}
	return &Scanner{sensitive: matchers}
}

// Scan reports vocabulary hits in vocabulary order and flags grammar issues
func (s *Scanner) Scan(text string) core.ContentIndicators {
	indicators := core.ContentIndicators{
		UrgencyWords:          []string{},
		ThreatWords:           []string{},
		RewardWords:           []string{},
		SensitiveInfoPatterns: []string{},
	}
	if strings.TrimSpace(text) == "" {
		return indicators
	}

	normalized := norm.NFKC.String(text)
	lower := strings.ToLower(normalized)

	indicators.UrgencyWords = matchWords(lower, urgencyWords)
	indicators.ThreatWords = matchWords(lower, threatWords)
	indicators.RewardWords = matchWords(lower, rewardWords)

	for _, m := range s.sensitive {
		if m.re.MatchString(normalized) {
			indicators.SensitiveInfoPatterns = append(indicators.SensitiveInfoPatterns, m.name)
		}
	}

	indicators.HasGrammarIssues = hasGrammarIssues(normalized)
	return indicators
}

func matchWords(text string, vocabulary []string) []string {
	matched := []string{}
	for _, w := range vocabulary {
		if strings.Contains(text, w) {
			matched = append(matched, w)
		}
	}
	return matched
}

// hasGrammarIssues is only evaluated for texts with more than three sentences
func hasGrammarIssues(text string) bool {
	var sentences []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) <= minSentencesForGrammar {
		return false
	}

	for _, s := range sentences {
		tokens := tokenPattern.FindAllString(s, -1)
		if len(tokens) < minSentenceTokens {
			return true
		}
		if first, _ := utf8.DecodeRuneInString(s); unicode.IsLower(first) {
			return true
		}
		if !hasPunctuation(tokens) {
			return true
		}
	}
	return false
}

func hasPunctuation(tokens []string) bool {
	for _, tok := range tokens {
		r, _ := utf8.DecodeRuneInString(tok)
		if unicode.IsPunct(r) {
			return true
		}
	}
	return false
}
