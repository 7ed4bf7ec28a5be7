// Package openrouter implements the provider adapter for the OpenRouter
// chat completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/opendoor-ai/chatcore/internal/provider"
)

const (
	defaultBaseURL   = "https://openrouter.ai/api/v1"
	defaultMaxTokens = 1024

	// Rate-limit responses are retried with exponential backoff before
	// the failure is surfaced: up to 3 retries starting at 1s.
	rateLimitRetries = 3
	rateLimitBase    = 1 * time.Second
)

// Client is an OpenRouter API client.
type Client struct {
	apiKey     string
	referer    string
	title      string
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithAttribution sets the HTTP-Referer and X-Title headers OpenRouter
// uses for app rankings.
func WithAttribution(referer, title string) Option {
	return func(c *Client) {
		c.referer = referer
		c.title = title
	}
}

// NewClient creates a new OpenRouter client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send posts the messages to the chat completions endpoint and returns
// the first choice's content. Rate-limit responses are retried with
// bounded exponential backoff; all other failures are single-attempt.
func (c *Client) Send(ctx context.Context, model string, messages []provider.Message) (string, error) {
	body, err := json.Marshal(request{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var content string
	backoff := retry.WithMaxRetries(rateLimitRetries, retry.NewExponential(rateLimitBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var sendErr error
		content, sendErr = c.sendOnce(ctx, body)
		var perr *provider.Error
		if errors.As(sendErr, &perr) && perr.Kind == provider.RateLimited {
			return retry.RetryableError(sendErr)
		}
		return sendErr
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) sendOnce(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", provider.NetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", provider.NetworkError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", provider.Classify(resp.StatusCode, errorMessage(respBody))
	}

	var result response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", &provider.Error{Kind: provider.ProviderError, HTTPStatus: resp.StatusCode, Message: "empty choices in response"}
	}
	return result.Choices[0].Message.Content, nil
}

func errorMessage(body []byte) string {
	var parsed response
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}
