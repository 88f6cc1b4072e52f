package api

import (
	"context"
	"encoding/json"
	"net/http"

	"plutus/internal/adapters/marketdata"
	"plutus/internal/advisor"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

// Recommender is the advisor capability the crypto endpoint needs.
type Recommender interface {
	Recommend(ctx context.Context, symbol, riskTolerance string) (*advisor.Recommendation, error)
}

// CryptoHandler serves /api/crypto without going through the agent:
// GET is a quote pass-through, POST returns the advisor's verdict.
type CryptoHandler struct {
	quotes  marketdata.QuoteProvider
	advisor Recommender
	log     *logger.Logger
}

// NewCryptoHandler creates the crypto data endpoint handler.
func NewCryptoHandler(quotes marketdata.QuoteProvider, adv Recommender) *CryptoHandler {
	return &CryptoHandler{
		quotes:  quotes,
		advisor: adv,
		log:     logger.Get().With("handler", "crypto"),
	}
}

type cryptoRequest struct {
	Symbol        string `json:"symbol"`
	RiskTolerance string `json:"risk_tolerance"`
}

// ServeHTTP routes GET to the quote fetcher and POST to the recommender.
func (h *CryptoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleQuote(w, r)
	case http.MethodPost:
		h.handleRecommendation(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CryptoHandler) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, errors.Wrap(errors.ErrInvalidRequest, "symbol is required"))
		return
	}

	quote, err := h.quotes.Quote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, errors.ErrProviderUnavailable) || errors.Is(err, errors.ErrExternal) {
			h.log.Errorf("quote for %s failed: %v", symbol, err)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": quote})
}

func (h *CryptoHandler) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	var req cryptoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrInvalidRequest, "malformed request body"))
		return
	}
	if req.Symbol == "" {
		writeError(w, errors.Wrap(errors.ErrInvalidRequest, "symbol is required"))
		return
	}

	rec, err := h.advisor.Recommend(r.Context(), req.Symbol, req.RiskTolerance)
	if err != nil {
		if errors.Is(err, errors.ErrProviderUnavailable) || errors.Is(err, errors.ErrExternal) {
			h.log.Errorf("recommendation for %s failed: %v", req.Symbol, err)
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
