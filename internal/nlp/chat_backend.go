package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/threat-verdict/internal/textproc"
)

// Completer is a chat model that answers one prompt and embeds text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Embed(ctx context.Context, sentences []string) ([][]float64, error)
}

// Emotions is the label set the chat backend asks for
var Emotions = []string{"anger", "disgust", "fear", "joy", "neutral", "sadness", "surprise"}

const intentPrompt = `Score how strongly the following email text shows each of these intents.
Score every intent independently with a number between 0 and 1.
Intents: %s

Respond with a JSON object of the form {"labels": [{"label": "<intent>", "score": <number>}]}.

Text:
%s

Respond only with the JSON object and nothing else.`

const singleLabelPrompt = `Classify the %s of the following email text as one of: %s.
Respond with a JSON object of the form {"label": "<label>", "score": <confidence between 0 and 1>}.

Text:
%s

Respond only with the JSON object and nothing else.`

// ChatBackend implements Backend on top of a general purpose chat model
type ChatBackend struct {
	completer Completer
}

// NewChatBackend creates a new ChatBackend
func NewChatBackend(completer Completer) *ChatBackend {
	return &ChatBackend{completer: completer}
}

// ClassifyIntents asks the model to score each label and keeps only known labels
func (b *ChatBackend) ClassifyIntents(ctx context.Context, text string, labels []string) ([]Label, error) {
	quoted, _ := json.Marshal(labels)
	reply, err := b.completer.Complete(ctx, fmt.Sprintf(intentPrompt, quoted, text))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Labels []Label `json:"labels"`
	}
	if err := textproc.DecodeJSONObject(reply, &parsed); err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		known[l] = struct{}{}
	}
	out := make([]Label, 0, len(parsed.Labels))
	for _, l := range parsed.Labels {
		name := strings.ToLower(strings.TrimSpace(l.Name))
		if _, ok := known[name]; !ok {
			continue
		}
		out = append(out, Label{Name: name, Score: clamp01(l.Score)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("model reply contains none of the requested intents")
	}
	return out, nil
}

// Sentiment returns POSITIVE or NEGATIVE
func (b *ChatBackend) Sentiment(ctx context.Context, text string) (Label, error) {
	l, err := b.single(ctx, "sentiment", []string{"POSITIVE", "NEGATIVE"}, text)
	if err != nil {
		return Label{}, err
	}
	l.Name = strings.ToUpper(l.Name)
	return l, nil
}

// Emotion returns one of Emotions
func (b *ChatBackend) Emotion(ctx context.Context, text string) (Label, error) {
	return b.single(ctx, "dominant emotion", Emotions, text)
}

// Embed delegates to the completer
func (b *ChatBackend) Embed(ctx context.Context, sentences []string) ([][]float64, error) {
	return b.completer.Embed(ctx, sentences)
}

func (b *ChatBackend) single(ctx context.Context, what string, choices []string, text string) (Label, error) {
	reply, err := b.completer.Complete(ctx, fmt.Sprintf(singleLabelPrompt, what, strings.Join(choices, ", "), text))
	if err != nil {
		return Label{}, err
	}

	var l Label
	if err := textproc.DecodeJSONObject(reply, &l); err != nil {
		return Label{}, err
	}
	name := strings.TrimSpace(l.Name)
	for _, c := range choices {
		if strings.EqualFold(c, name) {
			return Label{Name: strings.ToLower(c), Score: clamp01(l.Score)}, nil
		}
	}
	return Label{}, fmt.Errorf("unexpected %s label %q", what, l.Name)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
