package marketdata

import (
	"context"
	"fmt"
	"time"

	"plutus/internal/adapters/ai"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

const tvScannerBaseURL = "https://scanner.tradingview.com"

// tvColumns is the fixed column order requested from the scanner; response
// rows come back as positional arrays matching this slice.
var tvColumns = []string{
	"Recommend.All",
	"RSI",
	"Stoch.K",
	"Stoch.D",
	"MACD.macd",
	"MACD.signal",
	"SMA20",
	"SMA50",
	"SMA200",
	"BB.lower",
	"BB.upper",
	"volume",
	"change",
	"close",
}

// TradingViewClient pulls aggregate technical ratings from the public
// TradingView scanner. No API key is required.
type TradingViewClient struct {
	baseURL string
	http    *httpClient
	log     *logger.Logger
}

var _ AnalysisProvider = (*TradingViewClient)(nil)

// NewTradingViewClient creates a TradingView scanner adapter.
func NewTradingViewClient(timeout time.Duration, limiter ai.RateLimiter) *TradingViewClient {
	return &TradingViewClient{
		baseURL: tvScannerBaseURL,
		http:    newHTTPClient("tradingview", timeout, limiter),
		log:     logger.Get().With("component", "tradingview"),
	}
}

// Name returns the provider name.
func (c *TradingViewClient) Name() string { return "tradingview" }

// SetBaseURL overrides the scanner endpoint. Used in tests.
func (c *TradingViewClient) SetBaseURL(u string) { c.baseURL = u }

type tvScanRequest struct {
	Symbols struct {
		Tickers []string `json:"tickers"`
		Query   struct {
			Types []string `json:"types"`
		} `json:"query"`
	} `json:"symbols"`
	Columns []string `json:"columns"`
}

type tvScanResponse struct {
	Data []struct {
		Symbol string    `json:"s"`
		Values []float64 `json:"d"`
	} `json:"data"`
}

// Analyze returns interpreted technical signals for a crypto symbol at the
// given interval (1d, 4h, 1h, 15m).
func (c *TradingViewClient) Analyze(ctx context.Context, symbol, interval string) (*Analysis, error) {
	symbol = NormalizeCryptoSymbol(symbol)
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidSymbol, "empty symbol")
	}
	if interval == "" {
		interval = "1d"
	}

	var req tvScanRequest
	req.Symbols.Tickers = []string{"BINANCE:" + symbol + "USDT"}
	req.Symbols.Query.Types = []string{}
	req.Columns = tvColumns

	var resp tvScanResponse
	endpoint := fmt.Sprintf("%s/%s/scan", c.baseURL, interval)
	if err := c.http.postJSON(ctx, endpoint, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "no scanner data for %s", symbol)
	}

	indicators := make(map[string]float64, len(tvColumns))
	for i, col := range tvColumns {
		if i < len(resp.Data[0].Values) {
			indicators[col] = resp.Data[0].Values[i]
		}
	}

	signals := interpretIndicators(indicators)

	return &Analysis{
		Symbol:     symbol,
		Interval:   interval,
		Sentiment:  SentimentFromSignals(signals),
		Signals:    signals,
		Indicators: indicators,
		Source:     c.Name(),
		AsOf:       time.Now().UTC(),
	}, nil
}

// MultiTimeframe runs the analysis across the standard interval ladder.
// Failing intervals are skipped; at least one must succeed.
func (c *TradingViewClient) MultiTimeframe(ctx context.Context, symbol string) (map[string]*Analysis, error) {
	intervals := []string{"1d", "4h", "1h", "15m"}

	results := make(map[string]*Analysis, len(intervals))
	for _, interval := range intervals {
		analysis, err := c.Analyze(ctx, symbol, interval)
		if err != nil {
			c.log.Warnf("analysis for %s@%s failed: %v", symbol, interval, err)
			continue
		}
		results[interval] = analysis
	}

	if len(results) == 0 {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "no timeframe data for %s", symbol)
	}
	return results, nil
}

// interpretIndicators maps raw scanner values to bullish/bearish/neutral
// signals, mirroring how traders read each indicator.
func interpretIndicators(ind map[string]float64) []Signal {
	var signals []Signal

	if rec, ok := ind["Recommend.All"]; ok {
		sig := SignalNeutral
		switch {
		case rec > 0.5:
			sig = SignalBullish
		case rec < -0.5:
			sig = SignalBearish
		}
		signals = append(signals, Signal{
			Indicator:   "TradingView Recommendation",
			Signal:      sig,
			Description: fmt.Sprintf("aggregate recommendation score %.2f", rec),
		})
	}

	if rsi, ok := ind["RSI"]; ok {
		sig := SignalNeutral
		switch {
		case rsi > 70:
			sig = SignalBearish
		case rsi < 30:
			sig = SignalBullish
		}
		signals = append(signals, Signal{
			Indicator:   "RSI",
			Signal:      sig,
			Description: fmt.Sprintf("RSI at %.2f", rsi),
		})
	}

	macd, hasMACD := ind["MACD.macd"]
	macdSig, hasSig := ind["MACD.signal"]
	if hasMACD && hasSig {
		sig := SignalNeutral
		desc := "MACD and signal lines are close"
		switch {
		case macd > macdSig:
			sig = SignalBullish
			desc = "MACD is above signal line"
		case macd < macdSig:
			sig = SignalBearish
			desc = "MACD is below signal line"
		}
		signals = append(signals, Signal{Indicator: "MACD", Signal: sig, Description: desc})
	}

	close, hasClose := ind["close"]
	for _, ma := range []string{"SMA20", "SMA50", "SMA200"} {
		v, ok := ind[ma]
		if !ok || !hasClose || v == 0 {
			continue
		}
		sig := SignalNeutral
		switch {
		case close > v:
			sig = SignalBullish
		case close < v:
			sig = SignalBearish
		}
		signals = append(signals, Signal{
			Indicator:   "Price vs " + ma,
			Signal:      sig,
			Description: fmt.Sprintf("price %.2f vs %s %.2f", close, ma, v),
		})
	}

	lower, hasLower := ind["BB.lower"]
	upper, hasUpper := ind["BB.upper"]
	if hasClose && hasLower && hasUpper && upper > lower {
		sig := SignalNeutral
		desc := "price inside Bollinger Bands"
		switch {
		case close < lower:
			sig = SignalBullish
			desc = "price below lower Bollinger Band (oversold)"
		case close > upper:
			sig = SignalBearish
			desc = "price above upper Bollinger Band (overbought)"
		}
		signals = append(signals, Signal{Indicator: "Bollinger Bands", Signal: sig, Description: desc})
	}

	return signals
}
