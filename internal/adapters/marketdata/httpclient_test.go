package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plutus/internal/metrics"
	"plutus/pkg/errors"
)

func providerCalls(provider, status string) float64 {
	return testutil.ToFloat64(metrics.ProviderAPICalls.WithLabelValues(provider, status))
}

func TestHTTPClientRecordsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	c := newHTTPClient("testprov-ok", time.Second, nil)
	before := providerCalls("testprov-ok", "success")

	var dest map[string]interface{}
	require.NoError(t, c.getJSON(context.Background(), server.URL, nil, &dest))

	assert.Equal(t, before+1, providerCalls("testprov-ok", "success"))
}

func TestHTTPClientRecordsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newHTTPClient("testprov-429", time.Second, nil)
	before := providerCalls("testprov-429", "rate_limited")

	var dest map[string]interface{}
	err := c.getJSON(context.Background(), server.URL, nil, &dest)
	assert.ErrorIs(t, err, errors.ErrRateLimitExceeded)

	assert.Equal(t, before+1, providerCalls("testprov-429", "rate_limited"))
}

func TestHTTPClientRecordsTransportError(t *testing.T) {
	c := newHTTPClient("testprov-down", 200*time.Millisecond, nil)
	before := providerCalls("testprov-down", "error")

	var dest map[string]interface{}
	err := c.getJSON(context.Background(), "http://127.0.0.1:1/quote", nil, &dest)
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)

	assert.Equal(t, before+1, providerCalls("testprov-down", "error"))
}
