package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/markcheno/go-talib"

	"plutus/internal/adapters/ai"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient fetches historical price series from the Yahoo Finance chart
// API and derives indicator-based analysis locally. No API key is required.
type YahooClient struct {
	baseURL string
	http    *httpClient
	log     *logger.Logger
}

var _ AnalysisProvider = (*YahooClient)(nil)

// NewYahooClient creates a Yahoo Finance adapter.
func NewYahooClient(timeout time.Duration, limiter ai.RateLimiter) *YahooClient {
	return &YahooClient{
		baseURL: yahooBaseURL,
		http:    newHTTPClient("yahoo", timeout, limiter),
		log:     logger.Get().With("component", "yahoo"),
	}
}

// Name returns the provider name.
func (c *YahooClient) Name() string { return "yahoo" }

// SetBaseURL overrides the API endpoint. Used in tests.
func (c *YahooClient) SetBaseURL(u string) { c.baseURL = u }

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// History returns daily closing prices for the symbol over the given range
// (e.g. "6mo", "1y"). Crypto symbols are mapped to Yahoo's -USD pairs.
func (c *YahooClient) History(ctx context.Context, symbol, period string) ([]float64, error) {
	if period == "" {
		period = "6mo"
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d",
		c.baseURL, url.PathEscape(yahooSymbol(symbol)), url.QueryEscape(period))

	var resp yahooChartResponse
	if err := c.http.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "yahoo: %s", resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "no chart data for %s", symbol)
	}

	raw := resp.Chart.Result[0].Indicators.Quote[0].Close
	closes := make([]float64, 0, len(raw))
	for _, v := range raw {
		// Yahoo nulls become zero after decoding; drop gaps.
		if v > 0 && !math.IsNaN(v) {
			closes = append(closes, v)
		}
	}
	if len(closes) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "empty price series for %s", symbol)
	}

	return closes, nil
}

// Analyze computes a technical analysis snapshot from the historical close
// series: RSI(14), SMA50/SMA200 crosses, and MACD(12,26,9).
func (c *YahooClient) Analyze(ctx context.Context, symbol, period string) (*Analysis, error) {
	if period == "" {
		period = "6mo"
	}

	closes, err := c.History(ctx, symbol, period)
	if err != nil {
		return nil, err
	}

	indicators := map[string]float64{
		"close": closes[len(closes)-1],
	}
	var signals []Signal

	if len(closes) >= 15 {
		rsi := talib.Rsi(closes, 14)
		last := rsi[len(rsi)-1]
		indicators["RSI"] = last

		sig := SignalNeutral
		switch {
		case last > 70:
			sig = SignalBearish
		case last < 30:
			sig = SignalBullish
		}
		signals = append(signals, Signal{
			Indicator:   "RSI",
			Signal:      sig,
			Description: fmt.Sprintf("RSI(14) at %.2f", last),
		})
	}

	price := closes[len(closes)-1]
	if len(closes) >= 50 {
		sma50 := talib.Sma(closes, 50)
		last50 := sma50[len(sma50)-1]
		indicators["SMA50"] = last50
		signals = append(signals, maSignal(price, last50, "SMA50"))

		if len(closes) >= 200 {
			sma200 := talib.Sma(closes, 200)
			last200 := sma200[len(sma200)-1]
			indicators["SMA200"] = last200
			signals = append(signals, maSignal(price, last200, "SMA200"))

			if last50 > last200 {
				signals = append(signals, Signal{
					Indicator:   "Golden Cross",
					Signal:      SignalBullish,
					Description: "SMA50 above SMA200",
				})
			} else if last50 < last200 {
				signals = append(signals, Signal{
					Indicator:   "Death Cross",
					Signal:      SignalBearish,
					Description: "SMA50 below SMA200",
				})
			}
		}
	}

	if len(closes) >= 35 {
		macd, macdSignal, _ := talib.Macd(closes, 12, 26, 9)
		m, s := macd[len(macd)-1], macdSignal[len(macdSignal)-1]
		indicators["MACD.macd"] = m
		indicators["MACD.signal"] = s

		sig := SignalNeutral
		desc := "MACD and signal lines are close"
		switch {
		case m > s:
			sig = SignalBullish
			desc = "MACD is above signal line"
		case m < s:
			sig = SignalBearish
			desc = "MACD is below signal line"
		}
		signals = append(signals, Signal{Indicator: "MACD", Signal: sig, Description: desc})
	}

	return &Analysis{
		Symbol:     NormalizeCryptoSymbol(symbol),
		Interval:   period,
		Sentiment:  SentimentFromSignals(signals),
		Signals:    signals,
		Indicators: indicators,
		Source:     c.Name(),
		AsOf:       time.Now().UTC(),
	}, nil
}

// Performance returns the percent change over the period.
func (c *YahooClient) Performance(ctx context.Context, symbol, period string) (float64, error) {
	closes, err := c.History(ctx, symbol, period)
	if err != nil {
		return 0, err
	}
	if len(closes) < 2 || closes[0] == 0 {
		return 0, errors.Wrapf(errors.ErrInvalidSymbol, "insufficient history for %s", symbol)
	}
	return (closes[len(closes)-1] - closes[0]) / closes[0] * 100, nil
}

func maSignal(price, ma float64, name string) Signal {
	sig := SignalNeutral
	switch {
	case price > ma:
		sig = SignalBullish
	case price < ma:
		sig = SignalBearish
	}
	return Signal{
		Indicator:   "Price vs " + name,
		Signal:      sig,
		Description: fmt.Sprintf("price %.2f vs %s %.2f", price, name, ma),
	}
}

// yahooSymbol maps bare crypto tickers onto Yahoo's dash-USD pairs while
// passing stock tickers through untouched.
func yahooSymbol(symbol string) string {
	normalized := NormalizeCryptoSymbol(symbol)
	if isKnownCrypto(normalized) {
		return normalized + "-USD"
	}
	return symbol
}

var knownCryptos = map[string]struct{}{
	"BTC": {}, "ETH": {}, "XRP": {}, "LTC": {}, "BCH": {}, "ADA": {},
	"DOT": {}, "LINK": {}, "XLM": {}, "DOGE": {}, "UNI": {}, "SOL": {},
	"BNB": {}, "AVAX": {}, "MATIC": {}, "TRX": {},
}

func isKnownCrypto(symbol string) bool {
	_, ok := knownCryptos[symbol]
	return ok
}
