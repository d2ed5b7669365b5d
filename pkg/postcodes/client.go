// Package postcodes wraps the postcodes.io lookup used to enrich UK checkouts
// with county information.
package postcodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.postcodes.io"
	responseBodyReadLimit int64 = 1 << 16
)

// ErrNotFound is returned when the postcode cannot be resolved to a county.
var ErrNotFound = errors.New("postcode not found")

// Client queries the postcodes.io API.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a postcodes.io client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

type lookupResponse struct {
	Status int `json:"status"`
	Result struct {
		AdminCounty   string `json:"admin_county"`
		AdminDistrict string `json:"admin_district"`
	} `json:"result"`
}

// County resolves the administrative county for a UK postcode, falling back to
// the administrative district when no county is registered. Spaces in the
// input are tolerated.
func (c *Client) County(ctx context.Context, postcode string) (string, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(postcode), " ", "")
	if clean == "" {
		return "", ErrNotFound
	}

	endpoint := fmt.Sprintf("%s/postcodes/%s", c.baseURL, url.PathEscape(clean))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build postcode lookup")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "postcode lookup failed")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("postcode lookup returned status %d", resp.StatusCode))
	}

	var decoded lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&decoded); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode postcode lookup")
	}
	if decoded.Status != http.StatusOK {
		return "", ErrNotFound
	}
	if decoded.Result.AdminCounty != "" {
		return decoded.Result.AdminCounty, nil
	}
	if decoded.Result.AdminDistrict != "" {
		return decoded.Result.AdminDistrict, nil
	}
	return "", ErrNotFound
}
