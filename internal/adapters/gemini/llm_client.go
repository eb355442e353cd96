package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/threat-verdict/internal/textproc"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient scores messages with a Google Gemini model
type GeminiClient struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	embedder     *genai.EmbeddingModel
	modelName    string
	logger       *zap.Logger
	promptFormat string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	apiKey string,
	modelName string,
	embeddingModel string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	return &GeminiClient{
		client:       client,
		model:        model,
		embedder:     client.EmbeddingModel(embeddingModel),
		modelName:    modelName,
		logger:       logger,
		promptFormat: textproc.ClassifierPrompt,
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Name returns the model name
func (c *GeminiClient) Name() string {
	return "gemini:" + c.modelName
}

// Score returns the phishing probability of the text
func (c *GeminiClient) Score(ctx context.Context, text string) (float64, error) {
	reply, err := c.Complete(ctx, fmt.Sprintf(c.promptFormat, text))
	if err != nil {
		return 0, err
	}

	p, err := textproc.ParseProbability(reply)
	if err != nil {
		c.logger.Debug("Unparseable Gemini reply", zap.String("reply", reply))
		return 0, err
	}
	return p, nil
}

// Complete sends a single prompt and returns the reply text
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	return responseText(resp)
}

// Embed returns one embedding per sentence using a single batch request
func (c *GeminiClient) Embed(ctx context.Context, sentences []string) ([][]float64, error) {
	if len(sentences) == 0 {
		return [][]float64{}, nil
	}

	batch := c.embedder.NewBatch()
	for _, s := range sentences {
		batch.AddContent(genai.Text(s))
	}
	resp, err := c.embedder.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content with Gemini: %w", err)
	}
	if len(resp.Embeddings) != len(sentences) {
		return nil, fmt.Errorf("Gemini returned %d embeddings for %d sentences", len(resp.Embeddings), len(sentences))
	}

	out := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vec := make([]float64, len(e.Values))
		for j, v := range e.Values {
			vec[j] = float64(v)
		}
		out[i] = vec
	}
	return out, nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return sb.String(), nil
}
