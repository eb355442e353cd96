package virustotal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mikey/threat-verdict/internal/core"
	"go.uber.org/zap"
)

// DefaultBaseURL is the VirusTotal v3 API root
const DefaultBaseURL = "https://www.virustotal.com/api/v3"

const maxErrorBody = 512

// Client is an implementation of the ReputationOracle interface using the VirusTotal v3 API
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new VirusTotal client; an empty baseURL selects DefaultBaseURL
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type urlReport struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// LookupURL fetches the last analysis statistics of a URL id
func (c *Client) LookupURL(ctx context.Context, urlID string) (*core.AnalysisStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/urls/"+urlID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query VirusTotal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, core.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var report urlReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode VirusTotal report: %w", err)
	}

	stats := report.Data.Attributes.LastAnalysisStats
	c.logger.Debug("VirusTotal lookup complete",
		zap.String("url_id", urlID),
		zap.Int("malicious", stats.Malicious),
		zap.Int("suspicious", stats.Suspicious))

	return &core.AnalysisStats{
		Malicious:  stats.Malicious,
		Suspicious: stats.Suspicious,
		Harmless:   stats.Harmless,
		Undetected: stats.Undetected,
	}, nil
}

// SubmitURL queues a URL for scanning
func (c *Client) SubmitURL(ctx context.Context, target string) error {
	form := url.Values{"url": {target}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build submit request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit URL to VirusTotal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("URL submitted to VirusTotal", zap.String("url", target))
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("VirusTotal API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
