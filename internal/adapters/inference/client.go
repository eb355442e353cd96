package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to a Hugging Face style inference server (POST /models/{model})
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient creates a reusable HTTP client
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type request struct {
	Inputs     any            `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

func (c *Client) infer(ctx context.Context, model string, inputs any, params map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(request{
		Inputs:     inputs,
		Parameters: params,
		Options:    map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/models/"+model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model %s: unexpected status %s: %s", model, resp.Status, strings.TrimSpace(string(raw)))
	}

	c.logger.Debug("Inference call complete",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)))

	return raw, nil
}

// scoredLabel is one entry of a text-classification response
type scoredLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// decodeLabels accepts both the flat and the batched text-classification shapes
func decodeLabels(raw json.RawMessage) ([]scoredLabel, error) {
	var batched [][]scoredLabel
	if err := json.Unmarshal(raw, &batched); err == nil && len(batched) > 0 {
		return batched[0], nil
	}
	var flat []scoredLabel
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	return flat, nil
}
