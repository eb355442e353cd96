package textproc

import (
	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

// DefaultTokenBudget leaves room for two special tokens in a 512 token window
const DefaultTokenBudget = 510

const budgetStep = 10

// Truncator keeps the head and tail of a text within a token budget
type Truncator struct {
	tokenizer core.Tokenizer
	budget    int
	special   int
	logger    *zap.Logger
}

// NewTruncator creates a new Truncator; budget <= 0 selects DefaultTokenBudget
func NewTruncator(tokenizer core.Tokenizer, budget int, logger *zap.Logger) *Truncator {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	return &Truncator{
		tokenizer: tokenizer,
		budget:    budget,
		special:   tokenizer.CountTokens(""),
		logger:    logger,
	}
}

// Truncate returns text bounded to the budget along with token counts.
// The first budget/2 and the last budget-budget/2 tokens are kept.
func (t *Truncator) Truncate(text string) (string, core.TruncationInfo) {
	truncated := t.truncate(text, t.budget)

	info := core.TruncationInfo{
		OriginalTokens:  t.tokenizer.CountTokens(text),
		TruncatedTokens: t.tokenizer.CountTokens(truncated),
		WasTruncated:    len(truncated) < len(text),
	}
	if info.WasTruncated {
		t.logger.Debug("Classifier input truncated",
			zap.Int("original_tokens", info.OriginalTokens),
			zap.Int("truncated_tokens", info.TruncatedTokens))
	}
	return truncated, info
}

func (t *Truncator) truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}

	tokens := t.tokenizer.Tokenize(text)
	if len(tokens) <= budget {
		return text
	}

	head := budget / 2
	tail := budget - head
	kept := make([]string, 0, budget)
	kept = append(kept, tokens[:head]...)
	kept = append(kept, tokens[len(tokens)-tail:]...)
	truncated := t.tokenizer.Detokenize(kept)

	// Detokenizing can merge or split tokens, so re-check the window
	if t.tokenizer.CountTokens(truncated) > t.budget+t.special {
		return t.truncate(truncated, budget-budgetStep)
	}
	return truncated
}
