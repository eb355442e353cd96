package textproc

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

func init() {
	// encodings ship with the binary instead of being fetched on first use
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TiktokenTokenizer counts tokens the way OpenAI chat models do
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer selects the encoding of model, or cl100k_base for unknown models
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
		}
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

// Tokenize returns the raw bytes of each token; joining them restores the text
func (t *TiktokenTokenizer) Tokenize(text string) []string {
	ids := t.enc.Encode(text, nil, nil)
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = t.enc.Decode([]int{id})
	}
	return tokens
}

// Detokenize drops the partial runes left where the middle was cut out
func (t *TiktokenTokenizer) Detokenize(tokens []string) string {
	return strings.ToValidUTF8(strings.Join(tokens, ""), "")
}

func (t *TiktokenTokenizer) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
