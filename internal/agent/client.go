// Package agent is the relay's client for the automation vendor that drives
// the retailer-site checkout.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

const (
	authHeader    = "cc-key"
	sessionHeader = "x-session-id"

	responseBodyReadLimit = 1 << 20
)

// Client issues authenticated requests against the vendor API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logger = logg
	}
}

// NewClient builds a vendor client from the endpoint and API key.
func NewClient(endpoint, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("agent endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("agent api key is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		endpoint:   trimmed,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// RunRequest starts a workflow with its input variables.
type RunRequest struct {
	WorkflowID string         `json:"workflow_id"`
	Variables  map[string]any `json:"run_input_variables"`
}

type runResponse struct {
	SessionID string `json:"session_id"`
}

// Run starts an automation run and returns the session id the vendor assigned.
func (c *Client) Run(ctx context.Context, req RunRequest) (string, error) {
	body, err := c.post(ctx, c.endpoint+"/run", "", req)
	if err != nil {
		return "", err
	}

	var decoded runResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode run response")
	}
	if decoded.SessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "run response missing session id")
	}
	return decoded.SessionID, nil
}

// UserInteraction forwards a mid-run human decision to the vendor. The
// vendor's response body is returned verbatim for the caller to relay.
func (c *Client) UserInteraction(ctx context.Context, sessionID string, input map[string]any) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/run/%s/user_interaction", c.endpoint, sessionID)
	return c.post(ctx, url, "", input)
}

// FailureReport is the payload reported when a run is abandoned or fails on
// the client side.
type FailureReport struct {
	Reasoning string `json:"reasoning" validate:"required"`
	FullURL   string `json:"full_url" validate:"required"`
	ErrorCode string `json:"error_code" validate:"required"`
}

// FailedItem reports an abandoned run. The session travels in a header on
// this endpoint rather than the path.
func (c *Client) FailedItem(ctx context.Context, sessionID string, report FailureReport) (json.RawMessage, error) {
	return c.post(ctx, c.endpoint+"/failed_item", sessionID, report)
}

func (c *Client) post(ctx context.Context, url, sessionID string, payload any) (json.RawMessage, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode agent request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build agent request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(authHeader, c.apiKey)
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "agent request failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read agent response")
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if c.logger != nil {
			ctx = c.logger.WithFields(ctx, map[string]any{"status": resp.StatusCode, "url": url})
			c.logger.Warn(ctx, "agent request rejected")
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("agent returned status %d", resp.StatusCode))
	}
	return body, nil
}
