// Package gemini implements the ai.Service interface against Google's Gemini
// generateContent REST API.
//
// Each Complete call performs a single HTTPS POST to
//
//	{baseURL}/v1/models/{model}:generateContent?key={apiKey}
//
// with the request body
//
//	{"contents":[{"parts":[{"text": <prompt>}]}]}
//
// The response parser distinguishes three payload shapes:
//
//   - success: {"candidates":[{"content":{"parts":[{"text": <string>}]}}]}
//   - API error: {"error": {...}}
//   - safety block: {"promptFeedback":{"blockReason": <string>}}
//
// All three flow through a single text-extraction helper so the distinction
// is made exactly once. Residual markdown code fences are stripped from the
// returned text; the models occasionally wrap JSON answers in ```json fences
// even when told not to.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ProSamhacker/hospitalmanagement/pkg/provider/ai"
)

// Compile-time interface assertion.
var _ ai.Service = (*Client)(nil)

const (
	defaultModel   = "gemini-1.5-flash"
	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// defaultTimeout bounds the whole generateContent round trip, connect
	// through body read.
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithModel sets the Gemini model used for completions.
// Defaults to "gemini-1.5-flash".
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL overrides the API base URL. Primarily used in tests to point at
// a local httptest server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient replaces the underlying HTTP client. The caller is then
// responsible for configuring its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// Client implements [ai.Service] for the Gemini generateContent API.
// All methods are safe for concurrent use.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New creates a Gemini [Client] with the given API key and options.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ── Wire types ────────────────────────────────────────────────────────────────

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse covers all three payload shapes the endpoint produces.
// Exactly one of Candidates, Error, or PromptFeedback.BlockReason is expected
// to be meaningful in any given response.
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// ── Service implementation ────────────────────────────────────────────────────

// Complete implements [ai.Service]. It performs one generateContent round trip
// and returns the fence-stripped text of the first candidate.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: POST generateContent: %w: %v", ai.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w: %v", ai.ErrUnavailable, err)
	}

	return extractText(raw)
}

// extractText pulls the generated text out of a raw generateContent response
// body, distinguishing the success, error, and safety-block shapes. This is
// the single shared helper through which every response flows.
func extractText(raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", ai.ErrEmptyResponse
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}

	if gr.Error != nil {
		return "", fmt.Errorf("gemini: api error %d (%s): %s",
			gr.Error.Code, gr.Error.Status, gr.Error.Message)
	}
	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: %w: %s", ai.ErrBlocked, gr.PromptFeedback.BlockReason)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", ai.ErrEmptyResponse
	}

	text := gr.Candidates[0].Content.Parts[0].Text
	return StripFences(text), nil
}

// StripFences removes markdown code fences from s and trims surrounding
// whitespace. Both "```json" and bare "```" markers are removed wherever they
// appear, matching the tolerant cleanup the extraction pipeline relies on.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
