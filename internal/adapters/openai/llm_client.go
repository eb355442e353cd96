package openai

import (
	"context"
	"fmt"

	"github.com/mikey/threat-verdict/internal/textproc"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient scores messages with an OpenAI chat model.
// It also serves the NLP analyzer through Complete and Embed.
type OpenAIClient struct {
	client         *openai.Client
	modelName      string
	embeddingModel string
	maxTokens      int
	temperature    float32
	topP           float32
	logger         *zap.Logger
	promptFormat   string
}

// NewOpenAIClient creates a new OpenAI client.
// An empty baseURL uses the public API.
func NewOpenAIClient(
	apiKey string,
	baseURL string,
	modelName string,
	embeddingModel string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(cfg),
		modelName:      modelName,
		embeddingModel: embeddingModel,
		maxTokens:      maxTokens,
		temperature:    temperature,
		topP:           topP,
		logger:         logger,
		promptFormat:   textproc.ClassifierPrompt,
	}
}

// Name returns the model name
func (c *OpenAIClient) Name() string {
	return "openai:" + c.modelName
}

// Score returns the phishing probability of the text
func (c *OpenAIClient) Score(ctx context.Context, text string) (float64, error) {
	reply, err := c.Complete(ctx, fmt.Sprintf(c.promptFormat, text))
	if err != nil {
		return 0, err
	}

	p, err := textproc.ParseProbability(reply)
	if err != nil {
		c.logger.Debug("Unparseable OpenAI reply", zap.String("reply", reply))
		return 0, err
	}
	return p, nil
}

// Complete sends a single prompt and returns the reply text
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email security analyst. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}

	c.logger.Debug("OpenAI completion",
		zap.String("id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, nil
}

// Embed returns one embedding per sentence, in input order
func (c *OpenAIClient) Embed(ctx context.Context, sentences []string) ([][]float64, error) {
	if len(sentences) == 0 {
		return [][]float64{}, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: sentences,
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings with OpenAI: %w", err)
	}
	if len(resp.Data) != len(sentences) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d sentences", len(resp.Data), len(sentences))
	}

	out := make([][]float64, len(sentences))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("OpenAI embedding index %d out of range", d.Index)
		}
		vec := make([]float64, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float64(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}
