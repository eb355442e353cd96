package textproc

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_\s]`)

// WordTokenizer approximates a subword tokenizer by splitting words and punctuation.
// It is used when the classifier backend does not expose its own tokenizer.
type WordTokenizer struct {
	// SpecialTokens is added by CountTokens, like [CLS] and [SEP]
	SpecialTokens int
}

// NewWordTokenizer creates a tokenizer that reserves two special tokens
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{SpecialTokens: 2}
}

func (t *WordTokenizer) Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

func (t *WordTokenizer) Detokenize(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && !isClosingPunct(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func (t *WordTokenizer) CountTokens(text string) int {
	return len(t.Tokenize(text)) + t.SpecialTokens
}

func isClosingPunct(tok string) bool {
	switch tok {
	case ".", ",", "!", "?", ";", ":", ")", "]", "}", "'", "%":
		return true
	}
	return false
}
