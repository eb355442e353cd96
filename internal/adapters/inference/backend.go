package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/threat-verdict/internal/nlp"
)

// Models names the inference models behind the NLP backend
type Models struct {
	ZeroShot  string
	Sentiment string
	Emotion   string
	Embedding string
}

// Backend is an implementation of the nlp.Backend interface over an inference server
type Backend struct {
	client *Client
	models Models
}

// NewBackend creates a new NLP backend
func NewBackend(client *Client, models Models) *Backend {
	return &Backend{client: client, models: models}
}

func (b *Backend) ClassifyIntents(ctx context.Context, text string, labels []string) ([]nlp.Label, error) {
	raw, err := b.client.infer(ctx, b.models.ZeroShot, text, map[string]any{
		"candidate_labels": labels,
		"multi_label":      true,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Labels []string  `json:"labels"`
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode zero-shot response: %w", err)
	}
	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("zero-shot response has %d labels and %d scores", len(resp.Labels), len(resp.Scores))
	}

	out := make([]nlp.Label, len(resp.Labels))
	for i := range resp.Labels {
		out[i] = nlp.Label{Name: resp.Labels[i], Score: resp.Scores[i]}
	}
	return out, nil
}

func (b *Backend) Sentiment(ctx context.Context, text string) (nlp.Label, error) {
	return b.top(ctx, b.models.Sentiment, text)
}

func (b *Backend) Emotion(ctx context.Context, text string) (nlp.Label, error) {
	l, err := b.top(ctx, b.models.Emotion, text)
	l.Name = strings.ToLower(l.Name)
	return l, err
}

// Embed accepts pooled sentence vectors or token vectors, which are mean pooled
func (b *Backend) Embed(ctx context.Context, sentences []string) ([][]float64, error) {
	raw, err := b.client.infer(ctx, b.models.Embedding, sentences, nil)
	if err != nil {
		return nil, err
	}

	var pooled [][]float64
	if err := json.Unmarshal(raw, &pooled); err == nil {
		return pooled, nil
	}

	var tokens [][][]float64
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	out := make([][]float64, len(tokens))
	for i, t := range tokens {
		out[i] = meanPool(t)
	}
	return out, nil
}

func (b *Backend) top(ctx context.Context, model, text string) (nlp.Label, error) {
	raw, err := b.client.infer(ctx, model, text, nil)
	if err != nil {
		return nlp.Label{}, err
	}
	labels, err := decodeLabels(raw)
	if err != nil {
		return nlp.Label{}, err
	}
	if len(labels) == 0 {
		return nlp.Label{}, fmt.Errorf("model %s returned no labels", model)
	}

	best := labels[0]
	for _, l := range labels[1:] {
		if l.Score > best.Score {
			best = l
		}
	}
	return nlp.Label{Name: best.Label, Score: best.Score}, nil
}

func meanPool(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	out := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := range out {
			if i < len(v) {
				out[i] += v[i]
			}
		}
	}
	for i := range out {
		out[i] /= float64(len(vectors))
	}
	return out
}
