package advisor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"plutus/internal/adapters/marketdata"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

// Disclaimer is appended to every recommendation.
const Disclaimer = "This is not financial advice. Cryptocurrency and stock markets are highly volatile. Always do your own research and never invest more than you can afford to lose."

// Risk tolerance levels accepted by Recommend.
const (
	RiskConservative = "conservative"
	RiskModerate     = "moderate"
	RiskAggressive   = "aggressive"
)

// Recommendation is the advisor's consensus verdict for one symbol.
type Recommendation struct {
	Symbol           string    `json:"symbol"`
	Action           string    `json:"action"` // Strong Buy .. Strong Sell
	ConfidenceScore  float64   `json:"confidence_score"` // 0..100
	RiskLevel        string    `json:"risk_level"`
	RiskTolerance    string    `json:"risk_tolerance"`
	CurrentPrice     string    `json:"current_price"`
	MarketCap        string    `json:"market_cap,omitempty"`
	Sources          []string  `json:"sources"`
	AgreementLevel   float64   `json:"agreement_level"` // 0..1
	InvestmentThesis string    `json:"investment_thesis"`
	Risks            []string  `json:"risks"`
	Disclaimer       string    `json:"disclaimer"`
	Timestamp        time.Time `json:"timestamp"`
}

// HistoryProvider supplies daily closes for volatility estimation.
type HistoryProvider interface {
	History(ctx context.Context, symbol, period string) ([]float64, error)
}

// Advisor combines quotes and technical analysis from the configured
// providers into a single buy/sell recommendation.
type Advisor struct {
	quotes    marketdata.QuoteProvider
	analyzers []marketdata.AnalysisProvider
	history   HistoryProvider
	log       *logger.Logger
}

// New creates an advisor. The quote provider is required; analyzers and the
// history provider improve the verdict when present.
func New(quotes marketdata.QuoteProvider, analyzers []marketdata.AnalysisProvider, history HistoryProvider) (*Advisor, error) {
	if quotes == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "quote provider is required")
	}
	return &Advisor{
		quotes:    quotes,
		analyzers: analyzers,
		history:   history,
		log:       logger.Get().With("component", "advisor"),
	}, nil
}

// Recommend produces a consensus recommendation for the symbol, weighted by
// the caller's risk tolerance.
func (a *Advisor) Recommend(ctx context.Context, symbol, riskTolerance string) (*Recommendation, error) {
	symbol = marketdata.NormalizeCryptoSymbol(symbol)
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidSymbol, "empty symbol")
	}
	weight, err := riskWeight(riskTolerance)
	if err != nil {
		return nil, err
	}

	quote, err := a.quotes.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var (
		analyses []*marketdata.Analysis
		sources  = []string{a.quotes.Name()}
	)
	for _, analyzer := range a.analyzers {
		analysis, err := analyzer.Analyze(ctx, symbol, "1d")
		if err != nil {
			a.log.Warnf("analysis from %s failed for %s: %v", analyzer.Name(), symbol, err)
			continue
		}
		analyses = append(analyses, analysis)
		sources = append(sources, analyzer.Name())
	}

	score := consensusScore(analyses) * weight
	action := actionForScore(score)
	confidence := math.Abs(score) / 10 * 100
	if confidence > 100 {
		confidence = 100
	}

	volatility := a.estimateVolatility(ctx, symbol, quote)
	riskLevel := riskLevelForVolatility(volatility)

	rec := &Recommendation{
		Symbol:          symbol,
		Action:          action,
		ConfidenceScore: math.Round(confidence),
		RiskLevel:       riskLevel,
		RiskTolerance:   normalizeTolerance(riskTolerance),
		CurrentPrice:    "$" + humanize.CommafWithDigits(quote.Price.InexactFloat64(), 2),
		Sources:         sources,
		AgreementLevel:  agreementLevel(analyses),
		Risks:           collectRisks(riskLevel, analyses),
		Disclaimer:      Disclaimer,
		Timestamp:       time.Now().UTC(),
	}
	if !quote.MarketCap.IsZero() {
		rec.MarketCap = "$" + humanize.CommafWithDigits(quote.MarketCap.InexactFloat64(), 0)
	}
	rec.InvestmentThesis = buildThesis(rec, quote, analyses)

	return rec, nil
}

// riskWeight dampens the signal score for cautious investors.
func riskWeight(tolerance string) (float64, error) {
	switch normalizeTolerance(tolerance) {
	case RiskConservative:
		return 0.4, nil
	case RiskModerate:
		return 0.7, nil
	case RiskAggressive:
		return 1.0, nil
	default:
		return 0, errors.Wrapf(errors.ErrInvalidInput, "unknown risk tolerance %q", tolerance)
	}
}

func normalizeTolerance(tolerance string) string {
	t := strings.ToLower(strings.TrimSpace(tolerance))
	if t == "" {
		return RiskModerate
	}
	return t
}

// consensusScore folds all signals into a single -10..10 score.
func consensusScore(analyses []*marketdata.Analysis) float64 {
	var bullish, bearish, total int
	for _, a := range analyses {
		for _, s := range a.Signals {
			total++
			switch s.Signal {
			case marketdata.SignalBullish:
				bullish++
			case marketdata.SignalBearish:
				bearish++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(bullish-bearish) / float64(total) * 10
}

func actionForScore(score float64) string {
	switch {
	case score > 6:
		return "Strong Buy"
	case score > 3:
		return "Buy"
	case score > 0:
		return "Mild Buy"
	case score > -3:
		return "Hold"
	case score > -6:
		return "Sell"
	default:
		return "Strong Sell"
	}
}

// agreementLevel is the share of analyzers whose sentiment points the same
// direction as the majority.
func agreementLevel(analyses []*marketdata.Analysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	var buy, sell, hold int
	for _, a := range analyses {
		switch {
		case strings.Contains(a.Sentiment, "Buy"):
			buy++
		case strings.Contains(a.Sentiment, "Sell"):
			sell++
		default:
			hold++
		}
	}
	max := buy
	if sell > max {
		max = sell
	}
	if hold > max {
		max = hold
	}
	return float64(max) / float64(len(analyses))
}

// estimateVolatility returns annualized volatility in percent. Falls back to
// scaling the 24h change when no price history is available.
func (a *Advisor) estimateVolatility(ctx context.Context, symbol string, quote *marketdata.Quote) float64 {
	if a.history != nil {
		closes, err := a.history.History(ctx, symbol, "3mo")
		if err == nil && len(closes) >= 10 {
			return annualizedVolatility(closes)
		}
		if err != nil {
			a.log.Debugf("history unavailable for %s: %v", symbol, err)
		}
	}
	return math.Abs(quote.Change24h.InexactFloat64()) * math.Sqrt(365)
}

// annualizedVolatility is the stdev of daily returns scaled to a year.
func annualizedVolatility(closes []float64) float64 {
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(365) * 100
}

func riskLevelForVolatility(vol float64) string {
	switch {
	case vol > 100:
		return "Very High"
	case vol > 70:
		return "High"
	case vol > 40:
		return "Moderate"
	default:
		return "Low"
	}
}

func collectRisks(riskLevel string, analyses []*marketdata.Analysis) []string {
	var risks []string
	if riskLevel == "High" || riskLevel == "Very High" {
		risks = append(risks, fmt.Sprintf("%s price volatility", riskLevel))
	}
	seen := map[string]bool{}
	for _, a := range analyses {
		for _, s := range a.Signals {
			if s.Signal != marketdata.SignalBearish || seen[s.Indicator] {
				continue
			}
			seen[s.Indicator] = true
			risks = append(risks, s.Description)
		}
	}
	if len(risks) == 0 {
		risks = append(risks, "General market risk applies to all positions")
	}
	return risks
}

func buildThesis(rec *Recommendation, quote *marketdata.Quote, analyses []*marketdata.Analysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s trades at %s (%.2f%% over 24h).", rec.Symbol, rec.CurrentPrice, quote.Change24h.InexactFloat64())

	if len(analyses) > 0 {
		sentiments := make([]string, 0, len(analyses))
		for _, a := range analyses {
			sentiments = append(sentiments, fmt.Sprintf("%s says %s", a.Source, a.Sentiment))
		}
		fmt.Fprintf(&sb, " Technical consensus: %s.", strings.Join(sentiments, ", "))
	}

	fmt.Fprintf(&sb, " Overall verdict: %s with %.0f%% confidence at %s risk for a %s investor.",
		rec.Action, rec.ConfidenceScore, strings.ToLower(rec.RiskLevel), rec.RiskTolerance)
	return sb.String()
}
