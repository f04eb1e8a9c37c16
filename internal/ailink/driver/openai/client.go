package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scoutline/scoutline/internal/ailink/driver"
)

const defaultBaseURL = "https://api.openai.com/v1"

const providerName = "openai"

// Client speaks the OpenAI-compatible chat completions API over direct HTTP. Any provider
// exposing POST {base}/chat/completions with the same payload shape can be targeted by
// changing BaseURL.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	// Timeout bounds non-streaming calls. Streams are bounded only by the caller's context.
	Timeout time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}

	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return providerName
}

// Complete sends a non-streaming chat completion request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req, false)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	started := time.Now()
	resp, reqBody, err := c.post(ctx, payload)
	if err != nil {
		c.trace(req, reqBody, false, 0, nil, err, started)
		return nil, &driver.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.trace(req, reqBody, false, resp.StatusCode, nil, err, started)
		return nil, &driver.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		perr := &driver.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: errorMessage(respBody), RawResponse: respBody}
		c.trace(req, reqBody, false, resp.StatusCode, respBody, perr, started)
		return nil, perr
	}

	var parsed completion
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.trace(req, reqBody, false, resp.StatusCode, respBody, err, started)
		return nil, &driver.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: "decode response", RawResponse: respBody, Err: err}
	}

	c.trace(req, reqBody, false, resp.StatusCode, respBody, nil, started)
	return toDriverResponse(&parsed)
}

// Stream sends a streaming chat completion request. The returned stream must be closed.
func (c *Client) Stream(ctx context.Context, req *driver.Request) (driver.Stream, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	payload, err := buildChatRequest(req, true)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, reqBody, err := c.post(ctx, payload)
	if err != nil {
		c.trace(req, reqBody, true, 0, nil, err, started)
		return nil, &driver.ProviderError{Provider: providerName, Message: err.Error(), Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		perr := &driver.ProviderError{Provider: providerName, StatusCode: resp.StatusCode, Message: errorMessage(respBody), RawResponse: respBody}
		c.trace(req, reqBody, true, resp.StatusCode, respBody, perr, started)
		return nil, perr
	}

	c.trace(req, reqBody, true, resp.StatusCode, nil, nil, started)
	return newDeltaStream(resp.Body), nil
}

func (c *Client) post(ctx context.Context, payload *chatCompletionRequest) (*http.Response, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, body, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if payload.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, body, fmt.Errorf("request failed: %w", err)
	}
	return resp, body, nil
}

func (c *Client) trace(req *driver.Request, reqBody []byte, stream bool, status int, respBody []byte, err error, started time.Time) {
	if !driver.Tracing() {
		return
	}
	entry := driver.TraceEntry{
		Driver:     providerName,
		Endpoint:   strings.TrimRight(c.BaseURL, "/") + "/chat/completions",
		Stream:     stream,
		StatusCode: status,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if req != nil {
		entry.Model = req.Model
		entry.Prompt = req.PromptSlug
	}
	if json.Valid(reqBody) {
		entry.RequestBody = reqBody
	}
	if json.Valid(respBody) {
		entry.Response = respBody
	}
	if err != nil {
		entry.Error = err.Error()
	}
	driver.Trace(entry)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
