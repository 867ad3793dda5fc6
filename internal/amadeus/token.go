// Package amadeus talks to the Amadeus self-service APIs: the client-credentials
// token endpoint and authorized GET requests against the reference and shopping APIs.
package amadeus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neexbeast/tripfinder/internal/destination"
)

const (
	tokenPath = "/v1/security/oauth2/token"

	// expiryBuffer is subtracted from the credential lifetime before it is considered stale.
	expiryBuffer = 30 * time.Second
)

// Credential is a bearer token and the instant it stops being accepted.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// TokenSource holds one credential and refreshes it on demand.
// Concurrent refreshes collapse into a single exchange.
type TokenSource struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	now          func() time.Time

	mu   sync.RWMutex
	cred *Credential

	group     singleflight.Group
	exchanges int64
}

// TokenOption customizes a TokenSource.
type TokenOption func(*TokenSource)

// WithHTTPClient overrides the HTTP client used for the exchange.
func WithHTTPClient(c *http.Client) TokenOption {
	return func(ts *TokenSource) { ts.client = c }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(ts *TokenSource) { ts.now = now }
}

// NewTokenSource constructs a TokenSource for the API rooted at baseURL.
func NewTokenSource(baseURL, clientID, clientSecret string, opts ...TokenOption) *TokenSource {
	ts := &TokenSource{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       destination.NewHTTPClient(0),
		now:          time.Now,
	}
	for _, o := range opts {
		o(ts)
	}
	return ts
}

// Configured reports whether client credentials were supplied.
func (ts *TokenSource) Configured() bool {
	return ts.clientID != "" && ts.clientSecret != ""
}

// Token returns a usable bearer token, exchanging credentials when none is
// stored or the stored one is within the expiry buffer.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := ts.current(); ok {
		return tok, nil
	}

	ch := ts.group.DoChan("token", func() (any, error) {
		// Another caller may have refreshed while we waited for the group.
		if tok, ok := ts.current(); ok {
			return tok, nil
		}
		cred, err := ts.exchange(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		ts.mu.Lock()
		ts.cred = cred
		ts.exchanges++
		ts.mu.Unlock()
		return cred.Token, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: waiting for token: %v", destination.ErrUpstream, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the stored credential if it is still the rejected token.
func (ts *TokenSource) Invalidate(rejected string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.cred != nil && ts.cred.Token == rejected {
		ts.cred = nil
	}
}

// Exchanges returns how many successful token exchanges have happened.
func (ts *TokenSource) Exchanges() int64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.exchanges
}

func (ts *TokenSource) current() (string, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.cred == nil || !ts.now().Before(ts.cred.ExpiresAt.Add(-expiryBuffer)) {
		return "", false
	}
	return ts.cred.Token, true
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (ts *TokenSource) exchange(ctx context.Context) (*Credential, error) {
	if !ts.Configured() {
		return nil, fmt.Errorf("%w: amadeus client credentials not configured", destination.ErrAuth)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", ts.clientID)
	form.Set("client_secret", ts.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issuedAt := ts.now()

	var raw tokenResponse
	if err := destination.DoJSON(ts.client, req, &raw); err != nil {
		var se *destination.StatusError
		if errors.As(err, &se) && (se.Code == http.StatusBadRequest || se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: token exchange rejected with status %d", destination.ErrAuth, se.Code)
		}
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	if raw.AccessToken == "" || raw.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: token response missing access_token or expires_in", destination.ErrUpstream)
	}

	return &Credential{
		Token:     raw.AccessToken,
		ExpiresAt: issuedAt.Add(time.Duration(raw.ExpiresIn) * time.Second),
	}, nil
}
