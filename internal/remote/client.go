// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the production Deeting API endpoint.
	DefaultBaseURL = "https://api.deeting.app/v1"

	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the retry budget for transient failures.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 8 * time.Second

	// MaxResponseSize caps response bodies read into memory.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the client has no API key.
	ErrNotConfigured = errors.New("deeting API key not configured")

	// ErrAuthFailed indicates the API rejected the credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = errors.New("rate limited")

	// ErrAgentNotFound indicates the service definitively reported the
	// agent as absent. Transient failures never map to this error.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrSessionNotFound indicates the requested session no longer exists.
	ErrSessionNotFound = errors.New("session not found")
)

// APIError is a structured error response from the service.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("deeting API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("deeting API error (HTTP %d): %s", e.Status, e.Message)
}

// apiErrorResponse is the service's error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// AgentPayload is one agent definition as returned by the service.
type AgentPayload struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	SystemPrompt string   `json:"system_prompt"`
	Tags         []string `json:"tags,omitempty"`
	IconID       string   `json:"icon_id,omitempty"`
	Color        string   `json:"color,omitempty"`
	OwnerUserID  string   `json:"owner_user_id,omitempty"`
}

// HistoryEntry is one turn in a conversation window. TurnIndex and
// CreatedAt are optional; absent values are pointers so the reconciler can
// tell "missing" from zero.
type HistoryEntry struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	TurnIndex *int       `json:"turn_index,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// historyResponse is the history window envelope.
type historyResponse struct {
	SessionID string         `json:"session_id"`
	Messages  []HistoryEntry `json:"messages"`
}

// agentListResponse is the agent listing envelope.
type agentListResponse struct {
	Agents []AgentPayload `json:"agents"`
}

// ChatRequest asks the service to run one turn with an agent.
type ChatRequest struct {
	AssistantID string `json:"assistant_id"`
	SessionID   string `json:"session_id,omitempty"`
	Content     string `json:"content"`
	Stream      bool   `json:"stream"`
}

// ChatResponse is the non-streaming reply for one turn.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"reply"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Deeting backend service.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	streaming  *http.Client // no timeout; bounded by context
	maxRetries int
	limiter    *rate.Limiter
}

// NewClient creates a client with the given API key. An empty key is
// allowed; requests will then fail with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		streaming:  &http.Client{},
		maxRetries: DefaultMaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

// WithBaseURL sets a custom base URL (for self-hosted deployments and tests).
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimSuffix(base, "/")
	return c
}

// WithTimeout sets the non-streaming request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithMaxRetries sets the retry budget for transient failures.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithRateLimit replaces the client-side request limiter.
func (c *Client) WithRateLimit(perSecond float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return c
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "deeting-client/0.4")
}

// =============================================================================
// AGENT OPERATIONS
// =============================================================================

// GetAgent fetches one agent definition by id.
func (c *Client) GetAgent(ctx context.Context, id string) (*AgentPayload, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	var payload AgentPayload
	endpoint := c.baseURL + "/agents/" + url.PathEscape(id)
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return &payload, nil
}

// ListAgents fetches the caller's agent listing.
func (c *Client) ListAgents(ctx context.Context) ([]AgentPayload, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	var payload agentListResponse
	if err := c.getJSON(ctx, c.baseURL+"/agents", &payload); err != nil {
		return nil, err
	}
	return payload.Agents, nil
}

// =============================================================================
// HISTORY OPERATIONS
// =============================================================================

// GetHistory fetches the message window for a session, in turn order.
func (c *Client) GetHistory(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	var payload historyResponse
	endpoint := c.baseURL + "/sessions/" + url.PathEscape(sessionID) + "/messages"
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return payload.Messages, nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// SendMessage runs one non-streaming turn.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp ChatResponse
	if err := c.postJSON(ctx, c.baseURL+"/chat", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// getJSON performs a GET with retry and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return c.doJSON(ctx, http.MethodGet, endpoint, nil, out)
}

// postJSON performs a POST with retry and decodes the JSON response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, body []byte, out any) error {
	return c.doJSON(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay(attempt)):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		data, readErr := readResponse(resp)
		resp.Body.Close()
		log.Printf("API %s %s: %d (%v)", method, req.URL.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode == http.StatusOK {
			if out == nil {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			return nil
		}

		apiErr := decodeError(resp.StatusCode, data)
		if !isRetryable(resp.StatusCode) {
			return apiErr
		}
		lastErr = apiErr
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// readResponse reads a body with the size cap applied.
func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return data, nil
}

// decodeError converts an HTTP error response to a Go error.
func decodeError(status int, body []byte) error {
	var envelope apiErrorResponse
	message := strings.TrimSpace(string(body))
	code := ""
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
		code = envelope.Error.Code
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrAuthFailed, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	}
	return &APIError{Code: code, Message: message, Status: status}
}

// isRetryable reports whether a status code warrants a retry.
func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// isStatus reports whether err is an APIError with the given status.
func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// backoffDelay computes the exponential backoff delay for an attempt.
func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay * time.Duration(1<<(attempt-1))
	if d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}
