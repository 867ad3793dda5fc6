package amadeus

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/metrics"
)

// DefaultBaseURL is the Amadeus self-service test environment.
const DefaultBaseURL = "https://test.api.amadeus.com"

// Client performs authorized requests against the Amadeus APIs.
type Client struct {
	baseURL string
	tokens  *TokenSource
	client  *http.Client
	log     *slog.Logger
}

// NewClient constructs a Client that shares tokens with every other user of ts.
func NewClient(baseURL string, ts *TokenSource, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = destination.NewHTTPClient(0)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  ts,
		client:  httpClient,
		log:     log,
	}
}

// Configured reports whether the client has credentials to call the live API.
func (c *Client) Configured() bool {
	return c.tokens != nil && c.tokens.Configured()
}

// Get performs an authorized GET of path with query and decodes the response into dst.
// A 401 invalidates the token and the request is retried exactly once with a fresh one;
// a second 401 is returned as ErrAuth.
func (c *Client) Get(ctx context.Context, path string, query url.Values, dst any) error {
	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	err := c.get(ctx, rawURL, dst)
	if err == nil || !destination.Unauthorized(err) {
		c.record(path, err)
		return err
	}

	c.log.Info("amadeus rejected token, refreshing", "path", path)
	err = c.get(ctx, rawURL, dst)
	c.record(path, err)
	if destination.Unauthorized(err) {
		return fmt.Errorf("%w: %s rejected a freshly issued token", destination.ErrAuth, path)
	}
	return err
}

func (c *Client) get(ctx context.Context, rawURL string, dst any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)

	err = destination.GetJSON(ctx, c.client, rawURL, h, dst)
	if destination.Unauthorized(err) {
		c.tokens.Invalidate(token)
	}
	return err
}

func (c *Client) record(path string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.UpstreamRequests.WithLabelValues("amadeus"+path, result).Inc()
}
