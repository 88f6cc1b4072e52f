package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plutus/internal/adapters/marketdata"
	"plutus/internal/advisor"
	"plutus/pkg/errors"
)

type stubAdvisor struct {
	rec          *advisor.Recommendation
	err          error
	gotSymbol    string
	gotTolerance string
}

func (s *stubAdvisor) Recommend(ctx context.Context, symbol, riskTolerance string) (*advisor.Recommendation, error) {
	s.gotSymbol, s.gotTolerance = symbol, riskTolerance
	return s.rec, s.err
}

type stubQuotes struct {
	quote     *marketdata.Quote
	err       error
	gotSymbol string
}

func (s *stubQuotes) Name() string { return "stub-quotes" }

func (s *stubQuotes) Quote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	s.gotSymbol = symbol
	return s.quote, s.err
}

func TestCryptoGetReturnsWrappedQuote(t *testing.T) {
	quotes := &stubQuotes{quote: &marketdata.Quote{
		Symbol:    "BTC",
		Price:     decimal.NewFromInt(97000),
		Change24h: decimal.NewFromFloat(1.2),
		MarketCap: decimal.NewFromInt(1900000000000),
		Volume24h: decimal.NewFromInt(42000000000),
		Source:    "coinmarketcap",
	}}
	h := NewCryptoHandler(quotes, &stubAdvisor{})

	req := httptest.NewRequest(http.MethodGet, "/api/crypto?symbol=BTC", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC", quotes.gotSymbol)

	var resp struct {
		Data marketdata.Quote `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BTC", resp.Data.Symbol)
	assert.Equal(t, "97000", resp.Data.Price.String())
	assert.Equal(t, "1.2", resp.Data.Change24h.String())
	// The quote rides under a top-level data key, not bare.
	assert.True(t, strings.HasPrefix(strings.TrimSpace(rec.Body.String()), `{"data":`))
}

func TestCryptoGetDoesNotConsultAdvisor(t *testing.T) {
	adv := &stubAdvisor{}
	h := NewCryptoHandler(&stubQuotes{quote: &marketdata.Quote{Symbol: "ETH"}}, adv)

	req := httptest.NewRequest(http.MethodGet, "/api/crypto?symbol=ETH", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, adv.gotSymbol)
	assert.NotContains(t, rec.Body.String(), "confidence_score")
}

func TestCryptoPostReturnsRecommendation(t *testing.T) {
	adv := &stubAdvisor{rec: &advisor.Recommendation{Symbol: "ETH", Action: "Hold", Disclaimer: advisor.Disclaimer}}
	h := NewCryptoHandler(&stubQuotes{}, adv)

	req := httptest.NewRequest(http.MethodPost, "/api/crypto",
		strings.NewReader(`{"symbol": "ETH", "risk_tolerance": "conservative"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETH", adv.gotSymbol)
	assert.Equal(t, "conservative", adv.gotTolerance)
	assert.Contains(t, rec.Body.String(), "Hold")
	assert.Contains(t, rec.Body.String(), "not financial advice")
}

func TestCryptoMissingSymbol(t *testing.T) {
	h := NewCryptoHandler(&stubQuotes{}, &stubAdvisor{})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/crypto", nil),
		httptest.NewRequest(http.MethodPost, "/api/crypto", strings.NewReader(`{}`)),
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestCryptoGetInvalidSymbol(t *testing.T) {
	h := NewCryptoHandler(&stubQuotes{err: errors.Wrap(errors.ErrInvalidSymbol, "no quote for NOPE")}, &stubAdvisor{})

	req := httptest.NewRequest(http.MethodGet, "/api/crypto?symbol=NOPE", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCryptoGetProviderDown(t *testing.T) {
	h := NewCryptoHandler(&stubQuotes{err: errors.ErrProviderUnavailable}, &stubAdvisor{})

	req := httptest.NewRequest(http.MethodGet, "/api/crypto?symbol=BTC", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider_unavailable")
}

func TestCryptoPostProviderDown(t *testing.T) {
	h := NewCryptoHandler(&stubQuotes{}, &stubAdvisor{err: errors.ErrProviderUnavailable})

	req := httptest.NewRequest(http.MethodPost, "/api/crypto", strings.NewReader(`{"symbol": "BTC"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
