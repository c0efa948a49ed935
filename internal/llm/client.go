// Package llm provides the OpenRouter chat-completions client used by the
// classification, mapping and generation stages.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultModel  = "anthropic/claude-sonnet-4"
)

// Completer is the single-shot generation capability the pipeline stages
// depend on. Tests substitute a stub.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request describes one generation call. ImageData, when set, is attached as
// an inline data URL so vision-capable models can see the image. ImageRef
// passes an already-hosted URL (or data URL) through unchanged.
type Request struct {
	System    string
	Prompt    string
	ImageData []byte
	ImageMIME string
	ImageRef  string
	Model     string // optional per-call override
}

// Client handles communication with the OpenRouter API.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries uint64
}

// Config holds client settings.
type Config struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new LLM client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: uint64(retries),
	}, nil
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type apiRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type apiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// retryableStatus reports whether an HTTP status is worth retrying (quota
// or upstream hiccups). All other failures abort immediately.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Complete sends one prompt and returns the model's text response.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var content string

	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, openRouterURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("llm: API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
			if retryableStatus(resp.StatusCode) {
				return err
			}
			return backoff.Permanent(err)
		}

		var parsed apiResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("llm: parse response: %w", err))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("llm: no choices in response"))
		}

		content = parsed.Choices[0].Message.Content
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}

	return content, nil
}

func (c *Client) buildRequest(req Request) *apiRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var messages []message
	if req.System != "" {
		messages = append(messages, message{
			Role:    "system",
			Content: []contentPart{{Type: "text", Text: req.System}},
		})
	}

	parts := []contentPart{{Type: "text", Text: req.Prompt}}
	switch {
	case req.ImageRef != "":
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: req.ImageRef},
		})
	case len(req.ImageData) > 0:
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(req.ImageData)),
			},
		})
	}
	messages = append(messages, message{Role: "user", Content: parts})

	return &apiRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
