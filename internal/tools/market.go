package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"plutus/internal/adapters/marketdata"
	"plutus/internal/advisor"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

// OverviewProvider supplies a market-wide snapshot.
type OverviewProvider interface {
	MarketOverview(ctx context.Context, limit int) (*marketdata.MarketOverview, error)
}

// PerformanceProvider supplies percent performance over a period.
type PerformanceProvider interface {
	Performance(ctx context.Context, symbol, period string) (float64, error)
}

// Recommender produces a buy/sell verdict for a symbol.
type Recommender interface {
	Recommend(ctx context.Context, symbol, riskTolerance string) (*advisor.Recommendation, error)
}

type symbolArgs struct {
	Symbol string `json:"symbol"`
}

func requireSymbol(args json.RawMessage) (string, error) {
	var a symbolArgs
	if err := decodeArgs(args, &a); err != nil {
		return "", err
	}
	if a.Symbol == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "symbol is required")
	}
	return a.Symbol, nil
}

// NewCryptoPriceTool returns the get_crypto_price tool backed by a crypto
// quote provider.
func NewCryptoPriceTool(quotes marketdata.QuoteProvider) Tool {
	return New(
		"get_crypto_price",
		"Get the current price, 24h change, market cap and volume for a cryptocurrency.",
		ObjectSchema(map[string]interface{}{
			"symbol": StringParam("Cryptocurrency ticker symbol, e.g. BTC or ETH"),
		}, "symbol"),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			symbol, err := requireSymbol(args)
			if err != nil {
				return "", err
			}
			quote, err := quotes.Quote(ctx, symbol)
			if err != nil {
				return "", err
			}
			return toJSON(quote)
		},
	)
}

// NewCryptoAnalysisTool returns get_crypto_analysis, computing indicators
// from historical prices.
func NewCryptoAnalysisTool(analyzer marketdata.AnalysisProvider) Tool {
	return New(
		"get_crypto_analysis",
		"Run technical analysis (RSI, moving averages, MACD) on a cryptocurrency's price history.",
		ObjectSchema(map[string]interface{}{
			"symbol": StringParam("Cryptocurrency ticker symbol, e.g. BTC"),
			"period": StringParam("History window", "1mo", "3mo", "6mo", "1y"),
		}, "symbol"),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var a struct {
				Symbol string `json:"symbol"`
				Period string `json:"period"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return "", err
			}
			if a.Symbol == "" {
				return "", errors.Wrap(errors.ErrInvalidInput, "symbol is required")
			}
			if a.Period == "" {
				a.Period = "6mo"
			}
			analysis, err := analyzer.Analyze(ctx, a.Symbol, a.Period)
			if err != nil {
				return "", err
			}
			return toJSON(analysis)
		},
	)
}

// NewTradingViewAnalysisTool returns get_tradingview_analysis, exposing
// aggregate scanner ratings per interval.
func NewTradingViewAnalysisTool(analyzer marketdata.AnalysisProvider) Tool {
	return New(
		"get_tradingview_analysis",
		"Get TradingView technical ratings and indicator signals for a cryptocurrency at a chosen interval.",
		ObjectSchema(map[string]interface{}{
			"symbol":   StringParam("Cryptocurrency ticker symbol, e.g. BTC"),
			"interval": StringParam("Chart interval", "1d", "4h", "1h", "15m"),
		}, "symbol"),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var a struct {
				Symbol   string `json:"symbol"`
				Interval string `json:"interval"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return "", err
			}
			if a.Symbol == "" {
				return "", errors.Wrap(errors.ErrInvalidInput, "symbol is required")
			}
			if a.Interval == "" {
				a.Interval = "1d"
			}
			analysis, err := analyzer.Analyze(ctx, a.Symbol, a.Interval)
			if err != nil {
				return "", err
			}
			return toJSON(analysis)
		},
	)
}

// MultiTimeframeProvider runs one analysis per chart interval.
type MultiTimeframeProvider interface {
	MultiTimeframe(ctx context.Context, symbol string) (map[string]*marketdata.Analysis, error)
}

// NewMultiTimeframeAnalysisTool returns get_multi_timeframe_analysis,
// combining scanner ratings across the interval ladder in one call.
func NewMultiTimeframeAnalysisTool(analyzer MultiTimeframeProvider) Tool {
	return New(
		"get_multi_timeframe_analysis",
		"Get TradingView technical ratings for a cryptocurrency across daily, 4h, 1h and 15m intervals at once, to spot trend alignment or divergence.",
		ObjectSchema(map[string]interface{}{
			"symbol": StringParam("Cryptocurrency ticker symbol, e.g. BTC"),
		}, "symbol"),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			symbol, err := requireSymbol(args)
			if err != nil {
				return "", err
			}
			analyses, err := analyzer.MultiTimeframe(ctx, symbol)
			if err != nil {
				return "", err
			}
			return toJSON(analyses)
		},
	)
}

// NewMarketOverviewTool returns get_market_overview with the top coins and
// dominance metrics.
func NewMarketOverviewTool(overview OverviewProvider) Tool {
	return New(
		"get_market_overview",
		"Get a snapshot of the crypto market: top coins by market cap, BTC/ETH dominance and total market cap.",
		ObjectSchema(map[string]interface{}{
			"limit": IntParam("Number of top coins to include (default 10)"),
		}),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var a struct {
				Limit int `json:"limit"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return "", err
			}
			snapshot, err := overview.MarketOverview(ctx, a.Limit)
			if err != nil {
				return "", err
			}
			return toJSON(snapshot)
		},
	)
}

// NewStockQuoteTool returns get_stock_quote. The fallback provider covers
// primary throttling and may be nil.
func NewStockQuoteTool(primary, fallback marketdata.QuoteProvider) Tool {
	log := logger.Get().With("tool", "get_stock_quote")
	return New(
		"get_stock_quote",
		"Get the current price and daily change for a stock ticker.",
		ObjectSchema(map[string]interface{}{
			"symbol": StringParam("Stock ticker symbol, e.g. AAPL or TSLA"),
		}, "symbol"),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			symbol, err := requireSymbol(args)
			if err != nil {
				return "", err
			}
			quote, err := primary.Quote(ctx, symbol)
			if err != nil && fallback != nil && !errors.Is(err, errors.ErrInvalidSymbol) {
				log.Warnf("%s failed for %s, trying %s: %v", primary.Name(), symbol, fallback.Name(), err)
				quote, err = fallback.Quote(ctx, symbol)
			}
			if err != nil {
				return "", err
			}
			return toJSON(quote)
		},
	)
}

// NewCompareAssetsTool returns compare_assets, ranking symbols by percent
// performance over a period.
func NewCompareAssetsTool(perf PerformanceProvider) Tool {
	return New(
		"compare_assets",
		"Compare the price performance of multiple assets over a period and rank them.",
		ObjectSchema(map[string]interface{}{
			"symbols": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Ticker symbols to compare, e.g. [\"BTC\", \"ETH\", \"AAPL\"]",
			},
			"period": StringParam("Comparison window", "5d", "1mo", "3mo", "6mo", "1y"),
		}, "symbols"),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var a struct {
				Symbols []string `json:"symbols"`
				Period  string   `json:"period"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return "", err
			}
			if len(a.Symbols) < 2 {
				return "", errors.Wrap(errors.ErrInvalidInput, "at least two symbols are required")
			}
			if a.Period == "" {
				a.Period = "1mo"
			}

			type row struct {
				Symbol         string  `json:"symbol"`
				PerformancePct float64 `json:"performance_pct"`
			}
			var (
				rows   []row
				failed []string
			)
			for _, symbol := range a.Symbols {
				pct, err := perf.Performance(ctx, symbol, a.Period)
				if err != nil {
					failed = append(failed, symbol)
					continue
				}
				rows = append(rows, row{Symbol: symbol, PerformancePct: pct})
			}
			if len(rows) == 0 {
				return "", errors.Wrapf(errors.ErrProviderUnavailable, "no performance data for %v", a.Symbols)
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].PerformancePct > rows[j].PerformancePct })

			result := map[string]interface{}{
				"period":  a.Period,
				"ranking": rows,
			}
			if len(failed) > 0 {
				result["unavailable"] = failed
			}
			return toJSON(result)
		},
	)
}

// NewRecommendationTool returns get_buy_sell_recommendation backed by the
// advisor consensus.
func NewRecommendationTool(rec Recommender) Tool {
	return New(
		"get_buy_sell_recommendation",
		"Get a buy/sell/hold recommendation for a cryptocurrency with confidence, risk level and thesis.",
		ObjectSchema(map[string]interface{}{
			"symbol":         StringParam("Cryptocurrency ticker symbol, e.g. BTC"),
			"risk_tolerance": StringParam("Investor risk tolerance", advisor.RiskConservative, advisor.RiskModerate, advisor.RiskAggressive),
		}, "symbol"),
		func(ctx context.Context, args json.RawMessage) (string, error) {
			var a struct {
				Symbol        string `json:"symbol"`
				RiskTolerance string `json:"risk_tolerance"`
			}
			if err := decodeArgs(args, &a); err != nil {
				return "", err
			}
			if a.Symbol == "" {
				return "", errors.Wrap(errors.ErrInvalidInput, "symbol is required")
			}
			verdict, err := rec.Recommend(ctx, a.Symbol, a.RiskTolerance)
			if err != nil {
				return "", err
			}
			return toJSON(verdict)
		},
	)
}

// Describe renders a short one-line summary, used in startup logging.
func Describe(t Tool) string {
	return fmt.Sprintf("%s: %s", t.Name(), t.Description())
}
