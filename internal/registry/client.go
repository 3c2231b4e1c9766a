// Package registry implements the credential-guarded HTTP client for the
// external numbering authority: OAuth2 client-credentials token acquisition
// and caching, the three registry endpoints, and the 202-Accepted plain-text
// special case on batch submission.
//
// All failures cross the package boundary as coded domain errors; nothing in
// here panics or leaks transport errors raw.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gtind/internal/audit"
	registrymetrics "gtind/internal/registry/metrics"
	dErrors "gtind/pkg/domain-errors"
)

// requestTimeout bounds every registry call, token fetches included.
// Timeouts surface as retryable network errors, not fatal ones.
const requestTimeout = 30 * time.Second

const (
	endpointRanges  = "/GtinCodeRanges"
	endpointSubmit  = "/RegistrateGtinProducts"
	endpointStatus  = "/RegistrateProductStatus"
	endpointResults = "/RegistrateProductResults"
)

// accountNumberHeader is required by the provider on range queries only.
const accountNumberHeader = "AccountNumberHeader"

// Config carries everything the client needs to talk to one environment.
type Config struct {
	Mode          Mode
	BaseURL       string // empty selects the default for Mode
	AccountNumber string
	// WrapperKey is the JSON key wrapping the product array on submission.
	// The provider has shipped both casings across API revisions, so it is
	// configuration, not a constant. Empty means "registrationProducts".
	WrapperKey string
}

// Client wraps the registry endpoints. All methods are safe for concurrent
// use; retries are deliberately left to callers so a transport failure can
// never turn into a duplicate submission.
type Client struct {
	httpClient *http.Client
	tokens     *TokenSource
	audit      *audit.Publisher
	logger     *slog.Logger
	metrics    *registrymetrics.Metrics
	cfg        Config
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

func WithAuditPublisher(p *audit.Publisher) ClientOption {
	return func(c *Client) { c.audit = p }
}

func WithMetrics(m *registrymetrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

func NewClient(tokens *TokenSource, cfg Config, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		if cfg.Mode == ModeLive {
			cfg.BaseURL = liveBaseURL
		} else {
			cfg.BaseURL = sandboxBaseURL
		}
	}
	if cfg.WrapperKey == "" {
		cfg.WrapperKey = "registrationProducts"
	}
	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		tokens:     tokens,
		logger:     slog.Default(),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRanges queries the purchased GTIN ranges for the configured account.
func (c *Client) FetchRanges(ctx context.Context) ([]CodeRange, error) {
	body, _, err := c.request(ctx, http.MethodGet, endpointRanges, nil)
	if err != nil {
		return nil, err
	}

	// The provider returns a bare object for a single range and an array
	// for several.
	trimmed := bytes.TrimSpace(body)
	var ranges []CodeRange
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one CodeRange
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeRegistryRejected, "malformed range response")
		}
		ranges = []CodeRange{one}
	} else if err := json.Unmarshal(trimmed, &ranges); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRegistryRejected, "malformed range response")
	}

	out := ranges[:0]
	for _, r := range ranges {
		if r.StartNumber == "" || r.EndNumber == "" {
			continue
		}
		if r.ContractNumber == "" {
			r.ContractNumber = c.cfg.AccountNumber
		}
		out = append(out, r)
	}
	return out, nil
}

// SubmitBatch posts a product batch for registration and returns the opaque
// invocation handle identifying the asynchronous run.
//
// The registry answers 202 Accepted with a plain-text body holding the
// quoted handle. That body is never JSON: it is treated as an opaque string
// literal with surrounding quotes stripped.
func (c *Client) SubmitBatch(ctx context.Context, products []Product) (string, error) {
	if len(products) == 0 {
		return "", dErrors.New(dErrors.CodeBadRequest, "empty product batch")
	}
	payload := map[string]any{
		c.cfg.WrapperKey: products,
		"accountNumber":  c.cfg.AccountNumber,
	}

	body, status, err := c.request(ctx, http.MethodPost, endpointSubmit, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusAccepted {
		return "", dErrors.Newf(dErrors.CodeRegistryRejected, "submit returned %d, expected 202", status)
	}

	invocationID := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if invocationID == "" {
		return "", dErrors.New(dErrors.CodeRegistryRejected, "submit response carried no invocation id")
	}
	return invocationID, nil
}

// FetchResults retrieves the asynchronous outcome of one batch submission.
func (c *Client) FetchResults(ctx context.Context, invocationID string) (*ResultSet, error) {
	if invocationID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invocation id is required")
	}
	body, status, err := c.request(ctx, http.MethodGet, endpointResults+"/"+invocationID, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, dErrors.Newf(dErrors.CodeInvocationNotFound, "invocation %s unknown to registry", invocationID)
		}
		return nil, err
	}

	var results ResultSet
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeRegistryRejected, "malformed results response")
	}
	return &results, nil
}

// Status performs the registry's status probe. Used as the connection test.
func (c *Client) Status(ctx context.Context) error {
	_, _, err := c.request(ctx, http.MethodGet, endpointStatus, nil)
	return err
}

// request performs one authenticated call and normalizes every failure mode.
// The raw outbound JSON and response are emitted to the audit publisher.
func (c *Client) request(ctx context.Context, method, endpoint string, payload any) ([]byte, int, error) {
	bearer, err := c.tokens.Bearer(ctx, c.cfg.Mode)
	if err != nil {
		return nil, 0, err
	}

	var reqBody []byte
	var reader io.Reader
	if payload != nil {
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "payload marshal failed")
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, reader)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "request construction failed")
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if strings.Contains(endpoint, endpointRanges) {
		req.Header.Set(accountNumberHeader, c.cfg.AccountNumber)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, "network_error", time.Since(start))
		c.emitAudit(ctx, method, endpoint, 0, reqBody, nil)
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, 0, dErrors.Wrap(err, dErrors.CodeNetwork, "registry request timed out")
		}
		return nil, 0, dErrors.Wrap(err, dErrors.CodeNetwork, "registry unreachable")
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, dErrors.Wrap(err, dErrors.CodeNetwork, "response read failed")
	}

	c.emitAudit(ctx, method, endpoint, resp.StatusCode, reqBody, respBody)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, dErrors.Newf(dErrors.CodeRegistryRejected,
			"registry returned %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	return respBody, resp.StatusCode, nil
}

func (c *Client) emitAudit(ctx context.Context, method, endpoint string, status int, reqBody, respBody []byte) {
	if c.audit == nil {
		return
	}
	event := audit.Event{
		Action:       "registry_request",
		Endpoint:     endpoint,
		Method:       method,
		StatusCode:   status,
		RequestBody:  string(reqBody),
		ResponseBody: string(respBody),
	}
	if err := c.audit.Emit(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "audit emit failed",
			"endpoint", endpoint,
			"error", err,
		)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s… (%d bytes)", s[:n], len(s))
}
