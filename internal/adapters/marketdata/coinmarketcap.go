package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"plutus/internal/adapters/ai"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

const cmcBaseURL = "https://pro-api.coinmarketcap.com"

// CoinMarketCapClient fetches crypto quotes and market listings from the
// CoinMarketCap Pro API. This is the primary crypto quote source.
type CoinMarketCapClient struct {
	apiKey  string
	baseURL string
	http    *httpClient
	log     *logger.Logger
}

var _ QuoteProvider = (*CoinMarketCapClient)(nil)

// NewCoinMarketCapClient creates a CoinMarketCap adapter.
func NewCoinMarketCapClient(apiKey string, timeout time.Duration, limiter ai.RateLimiter) (*CoinMarketCapClient, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "coinmarketcap API key is required")
	}

	return &CoinMarketCapClient{
		apiKey:  apiKey,
		baseURL: cmcBaseURL,
		http:    newHTTPClient("coinmarketcap", timeout, limiter),
		log:     logger.Get().With("component", "coinmarketcap"),
	}, nil
}

// Name returns the provider name.
func (c *CoinMarketCapClient) Name() string { return "coinmarketcap" }

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *CoinMarketCapClient) SetBaseURL(u string) { c.baseURL = u }

func (c *CoinMarketCapClient) headers() map[string]string {
	return map[string]string{"X-CMC_PRO_API_KEY": c.apiKey}
}

type cmcQuoteResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string][]struct {
		Name  string `json:"name"`
		Quote map[string]struct {
			Price            float64 `json:"price"`
			Volume24h        float64 `json:"volume_24h"`
			PercentChange24h float64 `json:"percent_change_24h"`
			MarketCap        float64 `json:"market_cap"`
		} `json:"quote"`
	} `json:"data"`
}

// Quote returns the latest USD quote for a crypto symbol.
func (c *CoinMarketCapClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = NormalizeCryptoSymbol(symbol)
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidSymbol, "empty symbol")
	}

	endpoint := fmt.Sprintf("%s/v2/cryptocurrency/quotes/latest?symbol=%s&convert=USD",
		c.baseURL, url.QueryEscape(symbol))

	var resp cmcQuoteResponse
	if err := c.http.getJSON(ctx, endpoint, c.headers(), &resp); err != nil {
		return nil, err
	}
	if resp.Status.ErrorCode != 0 {
		return nil, errors.Wrapf(errors.ErrExternal, "coinmarketcap error %d: %s",
			resp.Status.ErrorCode, resp.Status.ErrorMessage)
	}

	entries, ok := resp.Data[symbol]
	if !ok || len(entries) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "no quote data for %s", symbol)
	}

	usd, ok := entries[0].Quote["USD"]
	if !ok {
		return nil, errors.Wrapf(errors.ErrExternal, "no USD quote for %s", symbol)
	}

	return &Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(usd.Price),
		Change24h: decimal.NewFromFloat(usd.PercentChange24h),
		MarketCap: decimal.NewFromFloat(usd.MarketCap),
		Volume24h: decimal.NewFromFloat(usd.Volume24h),
		Source:    c.Name(),
		AsOf:      time.Now().UTC(),
	}, nil
}

type cmcListingsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Quote  map[string]struct {
			Price            float64 `json:"price"`
			PercentChange24h float64 `json:"percent_change_24h"`
			MarketCap        float64 `json:"market_cap"`
		} `json:"quote"`
	} `json:"data"`
}

type cmcGlobalResponse struct {
	Data struct {
		BTCDominance float64 `json:"btc_dominance"`
		ETHDominance float64 `json:"eth_dominance"`
		Quote        map[string]struct {
			TotalMarketCap float64 `json:"total_market_cap"`
		} `json:"quote"`
	} `json:"data"`
}

// MarketOverview returns the top coins by market cap plus dominance metrics.
func (c *CoinMarketCapClient) MarketOverview(ctx context.Context, limit int) (*MarketOverview, error) {
	if limit <= 0 {
		limit = 10
	}

	var listings cmcListingsResponse
	endpoint := fmt.Sprintf("%s/v1/cryptocurrency/listings/latest?limit=%d&convert=USD", c.baseURL, limit)
	if err := c.http.getJSON(ctx, endpoint, c.headers(), &listings); err != nil {
		return nil, err
	}

	overview := &MarketOverview{
		Source: c.Name(),
		AsOf:   time.Now().UTC(),
	}
	for _, row := range listings.Data {
		usd := row.Quote["USD"]
		overview.TopCoins = append(overview.TopCoins, CoinSnapshot{
			Symbol:    row.Symbol,
			Name:      row.Name,
			Price:     decimal.NewFromFloat(usd.Price),
			Change24h: decimal.NewFromFloat(usd.PercentChange24h),
			MarketCap: decimal.NewFromFloat(usd.MarketCap),
		})
	}

	// Dominance metrics come from a separate endpoint; failure here degrades
	// the overview rather than failing it.
	var global cmcGlobalResponse
	if err := c.http.getJSON(ctx, c.baseURL+"/v1/global-metrics/quotes/latest", c.headers(), &global); err != nil {
		c.log.Warnf("global metrics unavailable: %v", err)
		return overview, nil
	}

	overview.BTCDominance = decimal.NewFromFloat(global.Data.BTCDominance)
	overview.ETHDominance = decimal.NewFromFloat(global.Data.ETHDominance)
	if usd, ok := global.Data.Quote["USD"]; ok {
		overview.TotalCapUSD = decimal.NewFromFloat(usd.TotalMarketCap)
	}

	return overview, nil
}
