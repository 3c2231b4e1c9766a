package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtind/internal/audit"
	dErrors "gtind/pkg/domain-errors"
)

// memoryCache is a plain map token cache for tests. The production memory
// implementation lives in tokencache to avoid an import cycle.
type memoryCache struct {
	mu     sync.Mutex
	tokens map[Mode]Token
}

func newMemoryCache() *memoryCache {
	return &memoryCache{tokens: make(map[Mode]Token)}
}

func (c *memoryCache) Get(ctx context.Context, mode Mode) (Token, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[mode]
	return t, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, mode Mode, token Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[mode] = token
	return nil
}

type registryFixture struct {
	tokenCalls  atomic.Int64
	submitBody  []byte
	resultsBody string
	server      *httptest.Server
}

// newFixture stands up a fake registry: token endpoint plus the three
// business endpoints.
func newFixture(t *testing.T) *registryFixture {
	t.Helper()
	f := &registryFixture{resultsBody: `{"successfulProducts":[],"errorMessages":[]}`}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("ClientId") != "client-1" || r.Header.Get("ClientSecret") != "secret-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.tokenCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-abc",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/GtinCodeRanges", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("AccountNumberHeader") != "ACC-42" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[{"startNumber":"0000000001000","endNumber":"0000000001999","contractNumber":"C-1"}]`))
	})
	mux.HandleFunc("/RegistrateGtinProducts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("AccountNumberHeader") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.submitBody = body
		w.WriteHeader(http.StatusAccepted)
		// Plain-text quoted handle, exactly as the provider sends it.
		_, _ = w.Write([]byte(`"inv-12345"`))
	})
	mux.HandleFunc("/RegistrateProductResults/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/RegistrateProductResults/inv-missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(f.resultsBody))
	})
	mux.HandleFunc("/RegistrateProductStatus", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(f *registryFixture, cache TokenCache, now func() time.Time, opts ...ClientOption) *Client {
	tokens := NewTokenSource(cache, TokenSourceConfig{
		TokenURL:     f.server.URL + "/token",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		Now:          now,
	})
	cfg := Config{
		Mode:          ModeSandbox,
		BaseURL:       f.server.URL,
		AccountNumber: "ACC-42",
	}
	return NewClient(tokens, cfg, opts...)
}

func TestFetchRanges(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(f, newMemoryCache(), nil)

	ranges, err := client.FetchRanges(context.Background())
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, "C-1", ranges[0].ContractNumber)
	assert.Equal(t, "0000000001000", ranges[0].StartNumber)
}

func TestSubmitBatchParsesPlainTextHandle(t *testing.T) {
	f := newFixture(t)
	store := audit.NewInMemoryStore()
	client := newTestClient(f, newMemoryCache(), nil, WithAuditPublisher(audit.NewPublisher(store)))

	net := 0.5
	invocationID, err := client.SubmitBatch(context.Background(), []Product{{
		Index:               1,
		GTIN:                "000000001000",
		Status:              "Actief",
		Description:         "Testartikel",
		Language:            "Nederlands",
		TargetMarketCountry: "Nederland",
		ConsumerUnit:        "Ja",
		PackagingType:       "Doos",
		ContractNumber:      "C-1",
		NetContent:          &net,
		MeasurementUnit:     "Kilogram (1 kg)",
	}})
	require.NoError(t, err)
	assert.Equal(t, "inv-12345", invocationID, "quotes must be stripped from the plain-text body")

	// The wrapper key and account number surround the product array.
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(f.submitBody, &wire))
	assert.Contains(t, wire, "registrationProducts")
	assert.Contains(t, wire, "accountNumber")

	// Request and response both reach the audit trail.
	events := store.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "registry_request", last.Action)
	assert.Equal(t, http.StatusAccepted, last.StatusCode)
	assert.Contains(t, last.ResponseBody, "inv-12345")
}

func TestSubmitBatchWrapperKeyIsConfigurable(t *testing.T) {
	f := newFixture(t)
	tokens := NewTokenSource(newMemoryCache(), TokenSourceConfig{
		TokenURL:     f.server.URL + "/token",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
	})
	client := NewClient(tokens, Config{
		Mode:          ModeSandbox,
		BaseURL:       f.server.URL,
		AccountNumber: "ACC-42",
		WrapperKey:    "RegistrationProducts",
	})

	_, err := client.SubmitBatch(context.Background(), []Product{{Index: 1, GTIN: "000000001000"}})
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(f.submitBody, &wire))
	assert.Contains(t, wire, "RegistrationProducts")
	assert.NotContains(t, wire, "registrationProducts")
}

func TestSubmitBatchRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(f, newMemoryCache(), nil)

	_, err := client.SubmitBatch(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestFetchResults(t *testing.T) {
	f := newFixture(t)
	f.resultsBody = `{
		"successfulProducts": [{"gtin": "0000000010004"}],
		"errorMessages": [{"contractNumber": "C-1", "errorMessageNl": "Onbekende GPC", "errorMessageEn": "Unknown GPC"}]
	}`
	client := newTestClient(f, newMemoryCache(), nil)

	results, err := client.FetchResults(context.Background(), "inv-12345")
	require.NoError(t, err)
	require.Len(t, results.SuccessfulProducts, 1)
	require.Len(t, results.ErrorMessages, 1)
	assert.Equal(t, "Onbekende GPC", results.ErrorMessages[0].Message(), "localized message preferred")
}

func TestFetchResultsUnknownInvocation(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(f, newMemoryCache(), nil)

	_, err := client.FetchResults(context.Background(), "inv-missing")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvocationNotFound))
}

func TestTokenCaching(t *testing.T) {
	f := newFixture(t)
	cache := newMemoryCache()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }
	client := newTestClient(f, cache, now)
	ctx := context.Background()

	require.NoError(t, client.Status(ctx))
	require.NoError(t, client.Status(ctx))
	assert.Equal(t, int64(1), f.tokenCalls.Load(), "second call must reuse the cached token")

	// Expiry is expires_in minus the 60s safety margin.
	token, ok, err := cache.Get(ctx, ModeSandbox)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, current.Add(3600*time.Second-60*time.Second), token.ExpiresAt)

	// Advance past the margin-adjusted expiry: the next call re-fetches.
	current = current.Add(3541 * time.Second)
	require.NoError(t, client.Status(ctx))
	assert.Equal(t, int64(2), f.tokenCalls.Load())
}

func TestTokenFailureIsAuthFailed(t *testing.T) {
	f := newFixture(t)
	tokens := NewTokenSource(newMemoryCache(), TokenSourceConfig{
		TokenURL:     f.server.URL + "/token",
		ClientID:     "client-1",
		ClientSecret: "wrong",
	})
	client := NewClient(tokens, Config{Mode: ModeSandbox, BaseURL: f.server.URL, AccountNumber: "ACC-42"})

	err := client.Status(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAuthFailed))
}

func TestNetworkErrorIsNormalized(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(f, newMemoryCache(), nil)

	// Warm the token, then kill the server so the business call fails at the
	// transport level.
	require.NoError(t, client.Status(context.Background()))
	f.server.Close()

	err := client.Status(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNetwork))
}

func TestRegistryRejectionIsNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer server.Close()

	tokens := NewTokenSource(newMemoryCache(), TokenSourceConfig{TokenURL: server.URL + "/token"})
	client := NewClient(tokens, Config{Mode: ModeSandbox, BaseURL: server.URL})

	err := client.Status(context.Background())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRegistryRejected))
}

func TestConcurrentTokenFetchIsDeduplicated(t *testing.T) {
	f := newFixture(t)
	client := newTestClient(f, newMemoryCache(), nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Status(ctx)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, f.tokenCalls.Load(), int64(2), "singleflight must collapse concurrent fetches")
}
