// Package checkout is the widget's client for the relay backend: the
// initiate-checkout call, mid-flow user-input submissions, the server-push
// status stream, and the best-effort interrupt beacon.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

const (
	defaultInteractionDelay = 2 * time.Second
	defaultRequestTimeout   = 30 * time.Second
	responseBodyReadLimit   = 1 << 20
)

var errBaseURLRequired = errors.New("backend base url is required")

// Client issues requests against the configured backend origin. It is
// stateless: session identity travels with every call.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	interactionDelay time.Duration
	logger           *logger.Logger
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

// WithInteractionDelay overrides the minimum delay applied before a user-input
// submission is dispatched.
func WithInteractionDelay(delay time.Duration) Option {
	return func(c *Client) {
		if delay >= 0 {
			c.interactionDelay = delay
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logger = logg
	}
}

// NewClient builds a backend client for the given origin.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:          trimmed,
		httpClient:       &http.Client{Timeout: defaultRequestTimeout},
		interactionDelay: defaultInteractionDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// InitiateRequest is the full checkout submission payload.
type InitiateRequest struct {
	ProductLink string `json:"productLink"`
	StoredPrice string `json:"storedPrice"`
	Merchant    string `json:"merchant"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	ShippingHouseNumber string `json:"shippingHouseNumber"`
	ShippingStreetName  string `json:"shippingStreetName"`
	ShippingPostcode    string `json:"shippingPostcode"`
	ShippingCity        string `json:"shippingCity"`

	SameAsShipping   bool   `json:"sameAsShipping"`
	BillingFirstName string `json:"billingFirstName"`
	BillingLastName  string `json:"billingLastName"`
	BillingAddress   string `json:"billingAddress"`
	BillingPostcode  string `json:"billingPostcode"`
	BillingCity      string `json:"billingCity"`

	CardHolder      string `json:"cardHolder"`
	CardBin         string `json:"cardBin"`
	CardNumber      string `json:"cardNumber"`
	CardExpiryYear  string `json:"cardExpiryYear"`
	CardExpiryMonth string `json:"cardExpiryMonth"`
	CardCvv         string `json:"cardCvv"`
}

// ExpandExpiryYear turns a two-digit expiry year into the four-digit form the
// backend expects.
func ExpandExpiryYear(year string) string {
	trimmed := strings.TrimSpace(year)
	if len(trimmed) == 2 {
		return "20" + trimmed
	}
	return trimmed
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func (e errorResponse) message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error
}

// InitiateCheckout submits the collected checkout data and returns the session
// id assigned by the backend. Non-2xx responses surface the server's error
// message verbatim so callers can route on it.
func (c *Client) InitiateCheckout(ctx context.Context, req InitiateRequest) (string, error) {
	resp, err := c.postJSON(ctx, c.baseURL+"/checkout", req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout request failed")
	}
	defer drainAndClose(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read checkout response")
	}

	if resp.StatusCode != http.StatusOK {
		var envelope errorResponse
		_ = json.Unmarshal(body, &envelope)
		msg := envelope.message()
		if msg == "" {
			msg = fmt.Sprintf("checkout failed with status %d", resp.StatusCode)
		}
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusBadRequest {
			code = pkgerrors.CodeValidation
		}
		return "", pkgerrors.New(code, msg)
	}

	var session sessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout response")
	}
	if session.SessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "checkout response missing session id")
	}
	return session.SessionID, nil
}

// UserInput is the payload of one mid-flow human decision.
type UserInput map[string]any

// PriceDecision resolves a price-change interrupt.
func PriceDecision(accept bool) UserInput {
	return UserInput{"accept": accept}
}

// VerificationCode resolves a verification-code interrupt.
func VerificationCode(code string) UserInput {
	return UserInput{"verification_code": code}
}

// Confirmation resolves a generic confirmation interrupt, e.g. the banking-app
// approval interstitial.
func Confirmation() UserInput {
	return UserInput{"confirmed": true}
}

// SubmitUserInput sends one mid-flow decision to the backend. The configured
// minimum delay is applied before dispatch; cancelling the context aborts the
// wait as well as the request.
func (c *Client) SubmitUserInput(ctx context.Context, sessionID string, input UserInput) error {
	if c.interactionDelay > 0 {
		timer := time.NewTimer(c.interactionDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	url := fmt.Sprintf("%s/run/%s/user_interaction", c.baseURL, sessionID)
	resp, err := c.postJSON(ctx, url, map[string]any{"userInput": input})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "user input request failed")
	}
	defer drainAndClose(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read user input response")
	}

	var envelope errorResponse
	_ = json.Unmarshal(body, &envelope)
	if resp.StatusCode != http.StatusOK || envelope.Error != "" {
		msg := envelope.message()
		if msg == "" {
			msg = fmt.Sprintf("user input failed with status %d", resp.StatusCode)
		}
		return pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	return nil
}

// SubmitUserInputAsync dispatches a decision without requiring the caller to
// await settlement. Failures are reported through onError only; they never
// feed back into the orchestrator's control flow.
func (c *Client) SubmitUserInputAsync(sessionID string, input UserInput, onError func(error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.interactionDelay+defaultRequestTimeout)
		defer cancel()
		if err := c.SubmitUserInput(ctx, sessionID, input); err != nil {
			if c.logger != nil {
				c.logger.Error(c.logger.WithSessionID(ctx, sessionID), "user input submission failed", err)
			}
			if onError != nil {
				onError(err)
			}
		}
	}()
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, responseBodyReadLimit))
	_ = body.Close()
}
