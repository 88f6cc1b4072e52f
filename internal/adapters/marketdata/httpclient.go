package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"plutus/internal/adapters/ai"
	"plutus/internal/metrics"
	"plutus/pkg/errors"
)

// httpClient is the shared rate-limited HTTP plumbing for provider adapters.
type httpClient struct {
	provider string
	client   *http.Client
	limiter  ai.RateLimiter
}

func newHTTPClient(provider string, timeout time.Duration, limiter ai.RateLimiter) *httpClient {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if limiter == nil {
		limiter = ai.NopLimiter{}
	}
	return &httpClient{
		provider: provider,
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
	}
}

// getJSON performs a rate-limited GET and decodes the JSON body into dest.
func (c *httpClient) getJSON(ctx context.Context, url string, headers map[string]string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, dest)
}

// postJSON performs a rate-limited POST with a JSON body.
func (c *httpClient) postJSON(ctx context.Context, url string, payload interface{}, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, dest)
}

func (c *httpClient) do(req *http.Request, dest interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordProviderCall(c.provider, "error")
		return errors.Wrapf(errors.ErrProviderUnavailable, "request %s: %v", req.URL.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordProviderCall(c.provider, "error")
		return errors.Wrap(err, "read response body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.RecordProviderCall(c.provider, "rate_limited")
		return errors.Wrapf(errors.ErrRateLimitExceeded, "%s returned 429", req.URL.Host)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.RecordProviderCall(c.provider, "error")
		return errors.Wrapf(errors.ErrExternal, "%s returned %d: %s",
			req.URL.Host, resp.StatusCode, truncate(string(respBody), 200))
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		metrics.RecordProviderCall(c.provider, "error")
		return errors.Wrapf(err, "decode response from %s", req.URL.Host)
	}

	metrics.RecordProviderCall(c.provider, "success")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
