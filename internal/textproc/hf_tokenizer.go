package textproc

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// HFTokenizer counts tokens with the classifier's own tokenizer.json,
// so the truncated input matches the model's window exactly.
type HFTokenizer struct {
	tk       *tokenizer.Tokenizer
	fallback *WordTokenizer
}

// NewHFTokenizer loads a Hugging Face tokenizer.json file
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return &HFTokenizer{tk: tk, fallback: NewWordTokenizer()}, nil
}

func (t *HFTokenizer) Tokenize(text string) []string {
	en, err := t.tk.EncodeSingle(text, false)
	if err != nil {
		return t.fallback.Tokenize(text)
	}
	return en.Tokens
}

func (t *HFTokenizer) Detokenize(tokens []string) string {
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if id, ok := t.tk.TokenToId(tok); ok {
			ids = append(ids, id)
		}
	}
	return t.tk.Decode(ids, true)
}

func (t *HFTokenizer) CountTokens(text string) int {
	en, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return t.fallback.CountTokens(text)
	}
	return en.Len()
}
