package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plutus/internal/adapters/marketdata"
	"plutus/internal/advisor"
	"plutus/pkg/errors"
)

type fakeQuotes struct {
	name   string
	quotes map[string]*marketdata.Quote
	err    error
	calls  int
}

func (f *fakeQuotes) Name() string { return f.name }

func (f *fakeQuotes) Quote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidSymbol, "no quote for %s", symbol)
	}
	return q, nil
}

type fakeAnalyzer struct {
	analysis *marketdata.Analysis
	gotSym   string
	gotIval  string
}

func (f *fakeAnalyzer) Name() string { return "fake-analyzer" }

func (f *fakeAnalyzer) Analyze(ctx context.Context, symbol, interval string) (*marketdata.Analysis, error) {
	f.gotSym, f.gotIval = symbol, interval
	return f.analysis, nil
}

type fakePerf struct {
	perf map[string]float64
}

func (f *fakePerf) Performance(ctx context.Context, symbol, period string) (float64, error) {
	v, ok := f.perf[symbol]
	if !ok {
		return 0, errors.Wrapf(errors.ErrInvalidSymbol, "no data for %s", symbol)
	}
	return v, nil
}

func TestCryptoPriceTool(t *testing.T) {
	quotes := &fakeQuotes{name: "cmc", quotes: map[string]*marketdata.Quote{
		"BTC": {Symbol: "BTC", Price: decimal.NewFromInt(97000), Source: "cmc"},
	}}
	tool := NewCryptoPriceTool(quotes)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"symbol": "BTC"}`))
	require.NoError(t, err)

	var got marketdata.Quote
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "BTC", got.Symbol)
	assert.Equal(t, "97000", got.Price.String())
}

func TestCryptoPriceToolRequiresSymbol(t *testing.T) {
	tool := NewCryptoPriceTool(&fakeQuotes{name: "cmc"})

	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = tool.Execute(context.Background(), json.RawMessage(`not json`))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestCryptoAnalysisToolDefaultsPeriod(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &marketdata.Analysis{Symbol: "BTC", Sentiment: "Buy"}}
	tool := NewCryptoAnalysisTool(analyzer)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"symbol": "BTC"}`))
	require.NoError(t, err)
	assert.Equal(t, "6mo", analyzer.gotIval)
}

func TestTradingViewAnalysisToolDefaultsInterval(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &marketdata.Analysis{Symbol: "ETH", Sentiment: "Neutral"}}
	tool := NewTradingViewAnalysisTool(analyzer)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"symbol": "ETH", "interval": "4h"}`))
	require.NoError(t, err)
	assert.Equal(t, "4h", analyzer.gotIval)

	_, err = tool.Execute(context.Background(), json.RawMessage(`{"symbol": "ETH"}`))
	require.NoError(t, err)
	assert.Equal(t, "1d", analyzer.gotIval)
}

type fakeMulti struct {
	analyses map[string]*marketdata.Analysis
	err      error
	gotSym   string
}

func (f *fakeMulti) MultiTimeframe(ctx context.Context, symbol string) (map[string]*marketdata.Analysis, error) {
	f.gotSym = symbol
	if f.err != nil {
		return nil, f.err
	}
	return f.analyses, nil
}

func TestMultiTimeframeAnalysisTool(t *testing.T) {
	analyzer := &fakeMulti{analyses: map[string]*marketdata.Analysis{
		"1d": {Symbol: "BTC", Interval: "1d", Sentiment: "Buy"},
		"4h": {Symbol: "BTC", Interval: "4h", Sentiment: "Neutral"},
	}}
	tool := NewMultiTimeframeAnalysisTool(analyzer)
	assert.Equal(t, "get_multi_timeframe_analysis", tool.Name())

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"symbol": "BTC"}`))
	require.NoError(t, err)
	assert.Equal(t, "BTC", analyzer.gotSym)

	var got map[string]marketdata.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Buy", got["1d"].Sentiment)
	assert.Equal(t, "Neutral", got["4h"].Sentiment)
}

func TestMultiTimeframeAnalysisToolRequiresSymbol(t *testing.T) {
	tool := NewMultiTimeframeAnalysisTool(&fakeMulti{})

	_, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestMultiTimeframeAnalysisToolPropagatesFailure(t *testing.T) {
	tool := NewMultiTimeframeAnalysisTool(&fakeMulti{err: errors.ErrProviderUnavailable})

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"symbol": "BTC"}`))
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
}

func TestStockQuoteToolFallsBack(t *testing.T) {
	primary := &fakeQuotes{name: "alphavantage", err: errors.ErrRateLimitExceeded}
	fallback := &fakeQuotes{name: "finnhub", quotes: map[string]*marketdata.Quote{
		"AAPL": {Symbol: "AAPL", Price: decimal.NewFromFloat(232.14), Source: "finnhub"},
	}}
	tool := NewStockQuoteTool(primary, fallback)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"symbol": "AAPL"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "finnhub")
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestStockQuoteToolNoFallbackOnBadSymbol(t *testing.T) {
	primary := &fakeQuotes{name: "alphavantage", quotes: map[string]*marketdata.Quote{}}
	fallback := &fakeQuotes{name: "finnhub"}
	tool := NewStockQuoteTool(primary, fallback)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"symbol": "NOPE"}`))
	assert.ErrorIs(t, err, errors.ErrInvalidSymbol)
	assert.Zero(t, fallback.calls)
}

func TestCompareAssetsToolRanks(t *testing.T) {
	perf := &fakePerf{perf: map[string]float64{"BTC": 12.5, "ETH": 20.1, "AAPL": -3.2}}
	tool := NewCompareAssetsTool(perf)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"symbols": ["BTC", "ETH", "AAPL"]}`))
	require.NoError(t, err)

	var got struct {
		Period  string `json:"period"`
		Ranking []struct {
			Symbol         string  `json:"symbol"`
			PerformancePct float64 `json:"performance_pct"`
		} `json:"ranking"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "1mo", got.Period)
	require.Len(t, got.Ranking, 3)
	assert.Equal(t, "ETH", got.Ranking[0].Symbol)
	assert.Equal(t, "AAPL", got.Ranking[2].Symbol)
}

func TestCompareAssetsToolPartialFailure(t *testing.T) {
	perf := &fakePerf{perf: map[string]float64{"BTC": 5}}
	tool := NewCompareAssetsTool(perf)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"symbols": ["BTC", "NOPE"]}`))
	require.NoError(t, err)
	assert.Contains(t, out, "unavailable")
	assert.Contains(t, out, "NOPE")
}

func TestCompareAssetsToolNeedsTwoSymbols(t *testing.T) {
	tool := NewCompareAssetsTool(&fakePerf{})

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"symbols": ["BTC"]}`))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

type fakeRecommender struct {
	gotTolerance string
}

func (f *fakeRecommender) Recommend(ctx context.Context, symbol, riskTolerance string) (*advisor.Recommendation, error) {
	f.gotTolerance = riskTolerance
	return &advisor.Recommendation{Symbol: symbol, Action: "Buy", Disclaimer: advisor.Disclaimer}, nil
}

func TestRecommendationTool(t *testing.T) {
	rec := &fakeRecommender{}
	tool := NewRecommendationTool(rec)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"symbol": "BTC", "risk_tolerance": "aggressive"}`))
	require.NoError(t, err)
	assert.Equal(t, "aggressive", rec.gotTolerance)
	assert.Contains(t, out, "Buy")
	assert.Contains(t, out, "not financial advice")
}

func TestDescribe(t *testing.T) {
	tool := NewCryptoPriceTool(&fakeQuotes{name: "cmc"})

	desc := Describe(tool)
	assert.Contains(t, desc, "get_crypto_price: ")
	assert.Contains(t, desc, tool.Description())
}
