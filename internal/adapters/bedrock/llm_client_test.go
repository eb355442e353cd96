package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	reply   string
	err     error
	request map[string]any
	modelID string
}

func (f *fakeInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.modelID = *params.ModelId
	if err := json.Unmarshal(params.Body, &f.request); err != nil {
		return nil, err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.reply)}, nil
}

func TestScoreByModelFamily(t *testing.T) {
	tests := []struct {
		name       string
		modelID    string
		reply      string
		requestKey string
	}{
		{
			name:       "claude messages",
			modelID:    "anthropic.claude-3-haiku-20240307-v1:0",
			reply:      `{"content":[{"type":"text","text":"{\"phishing_probability\": 0.7}"}]}`,
			requestKey: "messages",
		},
		{
			name:       "claude inference profile",
			modelID:    "us.anthropic.claude-3-5-sonnet-20240620-v1:0",
			reply:      `{"content":[{"type":"text","text":"Result: {\"phishing_probability\": 0.7}"}]}`,
			requestKey: "anthropic_version",
		},
		{
			name:       "titan",
			modelID:    "amazon.titan-text-express-v1",
			reply:      `{"results":[{"outputText":"{\"phishing_probability\": 0.7}"}]}`,
			requestKey: "inputText",
		},
		{
			name:       "llama",
			modelID:    "meta.llama3-8b-instruct-v1:0",
			reply:      `{"generation":"{\"phishing_probability\": 0.7}"}`,
			requestKey: "prompt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &fakeInvoker{reply: tt.reply}
			c := NewBedrockClient(inv, tt.modelID, 100, 0, 1, zap.NewNop())

			p, err := c.Score(context.Background(), "Your mailbox is full")
			if err != nil {
				t.Fatalf("Score returned error: %v", err)
			}
			if p != 0.7 {
				t.Errorf("p = %v, want 0.7", p)
			}
			if _, ok := inv.request[tt.requestKey]; !ok {
				t.Errorf("request body missing %q: %v", tt.requestKey, inv.request)
			}
			if inv.modelID != tt.modelID {
				t.Errorf("model id = %q", inv.modelID)
			}
		})
	}
}

func TestScoreInvokeError(t *testing.T) {
	c := NewBedrockClient(&fakeInvoker{err: errors.New("throttled")}, "amazon.titan-text-express-v1", 100, 0, 1, zap.NewNop())
	if _, err := c.Score(context.Background(), "text"); err == nil {
		t.Error("expected invoke error to propagate")
	}
}

func TestScoreEmptyTitanResult(t *testing.T) {
	c := NewBedrockClient(&fakeInvoker{reply: `{"results":[]}`}, "amazon.titan-text-express-v1", 100, 0, 1, zap.NewNop())
	if _, err := c.Score(context.Background(), "text"); err == nil {
		t.Error("expected error for empty Titan results")
	}
}
