// Package apiclient fetches the greeting shown by the frontend view.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	applog "github.com/janisto/gitops-demo/internal/platform/logging"
)

const (
	defaultBaseURL = "http://localhost:3000"
	helloPath      = "/api/hello"
	userAgent      = "gitops-demo-view"
)

// Hello is the body of GET /api/hello. Timestamp is kept as sent so the view
// shows it verbatim.
type Hello struct {
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Client calls the API service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the origin the API is served from.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// NewClient creates a client. A nil httpClient means http.DefaultClient.
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wireHello distinguishes absent fields from empty ones.
type wireHello struct {
	Message     *string `json:"message"`
	Timestamp   *string `json:"timestamp"`
	Environment *string `json:"environment"`
}

// GetHello issues one GET /api/hello. Transport failures are returned as is;
// non-2xx responses yield *StatusError.
func (c *Client) GetHello(ctx context.Context) (*Hello, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+helloPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		applog.LogWarn(ctx, "hello request failed", zap.Int("status", resp.StatusCode))
		return nil, &StatusError{Status: resp.StatusCode}
	}

	var wire wireHello
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding hello response: %w", err)
	}
	return wire.validate()
}

func (w wireHello) validate() (*Hello, error) {
	switch {
	case w.Message == nil:
		return nil, errMissing("message")
	case w.Timestamp == nil:
		return nil, errMissing("timestamp")
	case w.Environment == nil:
		return nil, errMissing("environment")
	}
	return &Hello{
		Message:     *w.Message,
		Timestamp:   *w.Timestamp,
		Environment: *w.Environment,
	}, nil
}

func errMissing(field string) error {
	return fmt.Errorf("invalid hello response: missing %s", field)
}
