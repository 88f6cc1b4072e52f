package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the normalized market quote shared by all providers.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"` // percent
	MarketCap decimal.Decimal `json:"market_cap"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Source    string          `json:"source"`
	AsOf      time.Time       `json:"as_of"`
}

// Signal is one interpreted technical indicator reading.
type Signal struct {
	Indicator   string `json:"indicator"`
	Signal      string `json:"signal"` // bullish | bearish | neutral
	Description string `json:"description"`
}

const (
	SignalBullish = "bullish"
	SignalBearish = "bearish"
	SignalNeutral = "neutral"
)

// Analysis is a normalized technical analysis snapshot for one symbol.
type Analysis struct {
	Symbol     string             `json:"symbol"`
	Interval   string             `json:"interval"`
	Sentiment  string             `json:"sentiment"` // Strong Buy .. Strong Sell
	Signals    []Signal           `json:"signals"`
	Indicators map[string]float64 `json:"indicators"`
	Source     string             `json:"source"`
	AsOf       time.Time          `json:"as_of"`
}

// CoinSnapshot is one row of a market overview listing.
type CoinSnapshot struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change_24h"`
	MarketCap decimal.Decimal `json:"market_cap"`
}

// MarketOverview is a normalized snapshot of the overall crypto market.
type MarketOverview struct {
	TopCoins     []CoinSnapshot  `json:"top_coins"`
	BTCDominance decimal.Decimal `json:"btc_dominance"` // percent
	ETHDominance decimal.Decimal `json:"eth_dominance"`
	TotalCapUSD  decimal.Decimal `json:"total_market_cap_usd"`
	Source       string          `json:"source"`
	AsOf         time.Time       `json:"as_of"`
}

// QuoteProvider fetches a normalized quote for a symbol.
type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*Quote, error)
}

// AnalysisProvider produces a technical analysis snapshot for a symbol.
type AnalysisProvider interface {
	Name() string
	Analyze(ctx context.Context, symbol, interval string) (*Analysis, error)
}

// NormalizeCryptoSymbol strips fiat suffixes so "btc-usd" and "BTCUSD" both
// resolve to "BTC", matching how users type symbols in chat.
func NormalizeCryptoSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.TrimSuffix(s, "-USD")
	s = strings.TrimSuffix(s, "USDT")
	if len(s) > 3 {
		s = strings.TrimSuffix(s, "USD")
	}
	return s
}

// SentimentFromSignals maps bullish/bearish signal counts onto the five-step
// sentiment scale.
func SentimentFromSignals(signals []Signal) string {
	var bullish, bearish, neutral int
	for _, s := range signals {
		switch s.Signal {
		case SignalBullish:
			bullish++
		case SignalBearish:
			bearish++
		default:
			neutral++
		}
	}

	switch {
	case bullish > bearish+neutral:
		return "Strong Buy"
	case bullish > bearish:
		return "Buy"
	case bearish > bullish+neutral:
		return "Strong Sell"
	case bearish > bullish:
		return "Sell"
	default:
		return "Neutral"
	}
}
