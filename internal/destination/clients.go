package destination

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// DefaultHTTPTimeout bounds every upstream call unless configured otherwise.
const DefaultHTTPTimeout = 5 * time.Second

// NewHTTPClient returns an http.Client with the given timeout, or the default when zero.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// DoJSON sends req and decodes a 200 JSON response into dst.
// Non-2xx responses become *StatusError; transport and decode failures wrap ErrUpstream.
func DoJSON(client *http.Client, req *http.Request, dst any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUpstream, req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Method: req.Method, URL: req.URL.Redacted(), Code: resp.StatusCode}
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %v", ErrUpstream, req.URL.Redacted(), err)
	}

	return nil
}

// GetJSON performs a GET request with optional headers and decodes the JSON response into dst.
func GetJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	return DoJSON(client, req, dst)
}
