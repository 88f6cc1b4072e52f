package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"plutus/internal/adapters/ai"
	"plutus/pkg/errors"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient fetches stock quotes from Finnhub. Optional provider used as
// a fallback for Alpha Vantage.
type FinnhubClient struct {
	token   string
	baseURL string
	http    *httpClient
}

var _ QuoteProvider = (*FinnhubClient)(nil)

// NewFinnhubClient creates a Finnhub adapter.
func NewFinnhubClient(token string, timeout time.Duration, limiter ai.RateLimiter) (*FinnhubClient, error) {
	if token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "finnhub API token is required")
	}
	return &FinnhubClient{
		token:   token,
		baseURL: finnhubBaseURL,
		http:    newHTTPClient("finnhub", timeout, limiter),
	}, nil
}

// Name returns the provider name.
func (c *FinnhubClient) Name() string { return "finnhub" }

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *FinnhubClient) SetBaseURL(u string) { c.baseURL = u }

type finnhubQuoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	PrevClose     float64 `json:"pc"`
}

// Quote returns the latest stock quote. Finnhub's quote endpoint carries no
// market cap or volume.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidSymbol, "empty symbol")
	}

	endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.token))

	var resp finnhubQuoteResponse
	if err := c.http.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	// Finnhub returns an all-zero quote for unknown symbols.
	if resp.Current == 0 && resp.PrevClose == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "no quote data for %s", symbol)
	}

	return &Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(resp.Current),
		Change24h: decimal.NewFromFloat(resp.ChangePercent),
		Source:    c.Name(),
		AsOf:      time.Now().UTC(),
	}, nil
}
