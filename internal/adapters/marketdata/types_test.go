package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCryptoSymbol(t *testing.T) {
	cases := map[string]string{
		"btc":      "BTC",
		"BTC-USD":  "BTC",
		"ETHUSDT":  "ETH",
		"SOLUSD":   "SOL",
		" doge ":   "DOGE",
		"BNB":      "BNB",
		"usd":      "USD",
		"AVAXUSDT": "AVAX",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCryptoSymbol(in), "input %q", in)
	}
}

func TestSentimentFromSignals(t *testing.T) {
	bull := Signal{Signal: SignalBullish}
	bear := Signal{Signal: SignalBearish}
	flat := Signal{Signal: SignalNeutral}

	tests := []struct {
		name    string
		signals []Signal
		want    string
	}{
		{"all bullish", []Signal{bull, bull, bull}, "Strong Buy"},
		{"mostly bullish", []Signal{bull, bull, bear, flat}, "Buy"},
		{"all bearish", []Signal{bear, bear, bear}, "Strong Sell"},
		{"mostly bearish", []Signal{bear, bear, bull, flat}, "Sell"},
		{"balanced", []Signal{bull, bear, flat}, "Neutral"},
		{"empty", nil, "Neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SentimentFromSignals(tt.signals))
		})
	}
}

func TestInterpretIndicators(t *testing.T) {
	ind := map[string]float64{
		"Recommend.All": 0.7,
		"RSI":           75,
		"MACD.macd":     12.5,
		"MACD.signal":   10.1,
		"close":         50000,
		"SMA20":         48000,
		"SMA50":         46000,
		"SMA200":        52000,
		"BB.lower":      47000,
		"BB.upper":      53000,
	}

	signals := interpretIndicators(ind)

	bySignal := map[string]string{}
	for _, s := range signals {
		bySignal[s.Indicator] = s.Signal
	}

	assert.Equal(t, SignalBullish, bySignal["TradingView Recommendation"])
	assert.Equal(t, SignalBearish, bySignal["RSI"])
	assert.Equal(t, SignalBullish, bySignal["MACD"])
	assert.Equal(t, SignalBullish, bySignal["Price vs SMA20"])
	assert.Equal(t, SignalBullish, bySignal["Price vs SMA50"])
	assert.Equal(t, SignalBearish, bySignal["Price vs SMA200"])
	assert.Equal(t, SignalNeutral, bySignal["Bollinger Bands"])
}

func TestInterpretIndicatorsSkipsMissing(t *testing.T) {
	signals := interpretIndicators(map[string]float64{"RSI": 25})

	assert.Len(t, signals, 1)
	assert.Equal(t, "RSI", signals[0].Indicator)
	assert.Equal(t, SignalBullish, signals[0].Signal)
}
