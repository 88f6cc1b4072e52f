package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"plutus/internal/adapters/ai"
	"plutus/pkg/errors"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageClient fetches stock quotes via the GLOBAL_QUOTE endpoint.
// Optional provider: constructed only when an API key is configured.
type AlphaVantageClient struct {
	apiKey  string
	baseURL string
	http    *httpClient
}

var _ QuoteProvider = (*AlphaVantageClient)(nil)

// NewAlphaVantageClient creates an Alpha Vantage adapter.
func NewAlphaVantageClient(apiKey string, timeout time.Duration, limiter ai.RateLimiter) (*AlphaVantageClient, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "alphavantage API key is required")
	}
	return &AlphaVantageClient{
		apiKey:  apiKey,
		baseURL: alphaVantageBaseURL,
		http:    newHTTPClient("alphavantage", timeout, limiter),
	}, nil
}

// Name returns the provider name.
func (c *AlphaVantageClient) Name() string { return "alphavantage" }

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *AlphaVantageClient) SetBaseURL(u string) { c.baseURL = u }

type alphaVantageQuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	Note         string `json:"Note"`
	ErrorMessage string `json:"Error Message"`
}

// Quote returns the latest stock quote. Market cap is not available on this
// endpoint and stays zero.
func (c *AlphaVantageClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidSymbol, "empty symbol")
	}

	endpoint := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	var resp alphaVantageQuoteResponse
	if err := c.http.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorMessage != "" {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "alphavantage: %s", resp.ErrorMessage)
	}
	if resp.Note != "" {
		// Free tier returns a throttling note instead of data.
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "alphavantage: %s", resp.Note)
	}
	if resp.GlobalQuote.Symbol == "" {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "no quote data for %s", symbol)
	}

	price, err := decimal.NewFromString(resp.GlobalQuote.Price)
	if err != nil {
		return nil, errors.Wrapf(err, "parse price %q", resp.GlobalQuote.Price)
	}

	changeStr := strings.TrimSuffix(resp.GlobalQuote.ChangePercent, "%")
	change, err := decimal.NewFromString(changeStr)
	if err != nil {
		change = decimal.Zero
	}

	volume, _ := strconv.ParseFloat(resp.GlobalQuote.Volume, 64)

	return &Quote{
		Symbol:    resp.GlobalQuote.Symbol,
		Price:     price,
		Change24h: change,
		Volume24h: decimal.NewFromFloat(volume),
		Source:    c.Name(),
		AsOf:      time.Now().UTC(),
	}, nil
}
