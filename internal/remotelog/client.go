// Package remotelog is the HTTP client for the remote message log
// service. The log is append-only and monotonically sequenced per
// conversation; this client never deletes or edits remote entries.
package remotelog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/opendoor-ai/chatcore/internal/provider"
	"github.com/opendoor-ai/chatcore/internal/types"
)

// Client talks to the message log service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new log client. token is sent as a bearer
// credential on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateConversationResponse is the body returned by POST /conversations.
type CreateConversationResponse struct {
	ID string `json:"id"`
}

// MessagesResponse is the body returned by the message listing endpoint.
type MessagesResponse struct {
	Messages []types.Message `json:"messages"`
}

// AppendMessageRequest is the body for appending to the log.
type AppendMessageRequest struct {
	Role    types.MessageRole `json:"role"`
	Content string            `json:"content"`
}

// CreateConversation registers a new conversation with the log and
// returns its server-side ID.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	var resp CreateConversationResponse
	if err := c.do(ctx, http.MethodPost, "/conversations", nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Fetch returns messages with sequence > afterSequence, ordered by
// sequence.
func (c *Client) Fetch(ctx context.Context, conversationID string, afterSequence int64) ([]types.Message, error) {
	path := fmt.Sprintf("/conversations/%s/messages?after=%s", conversationID, strconv.FormatInt(afterSequence, 10))
	var resp MessagesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Append writes a message to the log and returns the stored record with
// its assigned sequence.
func (c *Client) Append(ctx context.Context, conversationID string, role types.MessageRole, content string) (types.Message, error) {
	var msg types.Message
	path := fmt.Sprintf("/conversations/%s/messages", conversationID)
	if err := c.do(ctx, http.MethodPost, path, AppendMessageRequest{Role: role, Content: content}, &msg); err != nil {
		return types.Message{}, err
	}
	return msg, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return provider.NetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return provider.Classify(resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
