package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	registrymetrics "gtind/internal/registry/metrics"
	dErrors "gtind/pkg/domain-errors"
)

// expirySafetyMargin is subtracted from the provider's expires_in so a token
// is never presented moments before it dies mid-request.
const expirySafetyMargin = 60 * time.Second

// Token is a cached bearer token for one environment mode.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

// TokenCache stores bearer tokens keyed by environment mode. Injected rather
// than held as package state so tests can run with fake clocks and deployments
// can share a cache across replicas.
type TokenCache interface {
	Get(ctx context.Context, mode Mode) (Token, bool, error)
	Set(ctx context.Context, mode Mode, token Token) error
}

// TokenSource acquires OAuth2 client-credentials tokens from the registry's
// token endpoint, reusing cached tokens until the safety margin runs out.
// Concurrent callers for the same mode share a single fetch.
type TokenSource struct {
	httpClient   *http.Client
	cache        TokenCache
	tokenURL     string
	clientID     string
	clientSecret string
	now          func() time.Time
	metrics      *registrymetrics.Metrics
	group        singleflight.Group
}

type TokenSourceConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Now          func() time.Time
	Metrics      *registrymetrics.Metrics
}

func NewTokenSource(cache TokenCache, cfg TokenSourceConfig) *TokenSource {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenSource{
		httpClient:   httpClient,
		cache:        cache,
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		now:          now,
		metrics:      cfg.Metrics,
	}
}

// Bearer returns a valid access token for the mode, fetching a fresh one when
// the cache misses or the cached token has aged past the safety margin.
// A fetch failure is a hard auth failure for the caller.
func (ts *TokenSource) Bearer(ctx context.Context, mode Mode) (string, error) {
	if cached, ok, err := ts.cache.Get(ctx, mode); err == nil && ok && cached.Valid(ts.now()) {
		return cached.AccessToken, nil
	}

	v, err, _ := ts.group.Do(string(mode), func() (any, error) {
		// Re-check under the flight lock: another caller may have refreshed.
		if cached, ok, err := ts.cache.Get(ctx, mode); err == nil && ok && cached.Valid(ts.now()) {
			return cached.AccessToken, nil
		}
		token, err := ts.fetch(ctx)
		if err != nil {
			ts.metrics.IncrementTokenFetch("failed")
			return "", err
		}
		ts.metrics.IncrementTokenFetch("ok")
		if err := ts.cache.Set(ctx, mode, token); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "token cache write failed")
		}
		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (ts *TokenSource) fetch(ctx context.Context) (Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, nil)
	if err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeAuthFailed, "token request construction failed")
	}
	// The provider takes client credentials as headers, not a form body.
	req.Header.Set("ClientId", ts.clientID)
	req.Header.Set("ClientSecret", ts.clientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeAuthFailed, "token endpoint unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Token{}, dErrors.Newf(dErrors.CodeAuthFailed, "token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeAuthFailed, "malformed token response")
	}
	if body.AccessToken == "" {
		return Token{}, dErrors.New(dErrors.CodeAuthFailed, "token response carried no access_token")
	}

	lifetime := time.Duration(body.ExpiresIn)*time.Second - expirySafetyMargin
	if lifetime < 0 {
		lifetime = 0
	}
	return Token{
		AccessToken: body.AccessToken,
		ExpiresAt:   ts.now().Add(lifetime),
	}, nil
}
