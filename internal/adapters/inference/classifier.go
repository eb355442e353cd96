package inference

import (
	"context"
	"fmt"
	"strings"
)

// DefaultPositiveLabels are the labels treated as the phishing class
var DefaultPositiveLabels = []string{"phishing", "phishing email", "spam", "label_1", "malicious"}

// Classifier is an implementation of the ClassifierOracle interface over a text-classification model
type Classifier struct {
	client   *Client
	model    string
	positive map[string]struct{}
}

// NewClassifier creates a new classifier; empty positiveLabels selects DefaultPositiveLabels
func NewClassifier(client *Client, model string, positiveLabels []string) *Classifier {
	if len(positiveLabels) == 0 {
		positiveLabels = DefaultPositiveLabels
	}
	positive := make(map[string]struct{}, len(positiveLabels))
	for _, l := range positiveLabels {
		positive[strings.ToLower(l)] = struct{}{}
	}
	return &Classifier{client: client, model: model, positive: positive}
}

func (c *Classifier) Name() string {
	return c.model
}

// Score returns the probability of the phishing class. When only the
// negative class is reported its complement is used.
func (c *Classifier) Score(ctx context.Context, text string) (float64, error) {
	raw, err := c.client.infer(ctx, c.model, text, map[string]any{"top_k": nil})
	if err != nil {
		return 0, err
	}
	labels, err := decodeLabels(raw)
	if err != nil {
		return 0, err
	}
	if len(labels) == 0 {
		return 0, fmt.Errorf("model %s returned no labels", c.model)
	}

	for _, l := range labels {
		if _, ok := c.positive[strings.ToLower(l.Label)]; ok {
			return l.Score, nil
		}
	}
	if len(labels) == 1 {
		return 1 - labels[0].Score, nil
	}
	return 0, fmt.Errorf("model %s returned no phishing label", c.model)
}
