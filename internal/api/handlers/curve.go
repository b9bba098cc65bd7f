package handlers

import (
	"net/http"
	"time"

	"github.com/curvelab/yieldstress/internal/curve"
	"github.com/curvelab/yieldstress/pkg/logger"
)

// CurveHandler handles the raw curve endpoints.
type CurveHandler struct {
	provider *curve.Provider
	logger   *logger.Logger
}

// NewCurveHandler creates a curve handler.
func NewCurveHandler(provider *curve.Provider, log *logger.Logger) *CurveHandler {
	return &CurveHandler{
		provider: provider,
		logger:   log,
	}
}

// LatestCurveResponse is the most recent published curve.
type LatestCurveResponse struct {
	Date       time.Time `json:"date"`
	Maturities []string  `json:"maturities"`
	Rates      []float64 `json:"rates"`
}

// GetLatest returns the most recent curve observation.
// GET /api/curve/latest
func (h *CurveHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// A short trailing window is enough to find the latest publication.
	to := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -14)

	history, err := h.provider.History(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest curve")
		respondError(w, http.StatusInternalServerError, "Failed to load latest curve")
		return
	}

	date, rates, err := history.Latest()
	if err != nil {
		respondError(w, http.StatusNotFound, "No recent curve available")
		return
	}

	respondJSON(w, http.StatusOK, LatestCurveResponse{
		Date:       date,
		Maturities: curve.Maturities,
		Rates:      rates,
	})
}

// HistoryResponse is a dated rate matrix.
type HistoryResponse struct {
	Maturities   []string    `json:"maturities"`
	Dates        []time.Time `json:"dates"`
	Rates        [][]float64 `json:"rates"`
	Observations int         `json:"observations"`
}

// GetHistory returns curve observations for a period.
// GET /api/curve/history?from=...&to=...
func (h *CurveHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	from, to, err := parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !from.Before(to) {
		respondError(w, http.StatusBadRequest, "'from' must be before 'to'")
		return
	}

	history, err := h.provider.History(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load curve history")
		respondError(w, http.StatusInternalServerError, "Failed to load curve history")
		return
	}
	if history.Len() == 0 {
		respondError(w, http.StatusNotFound, "No curve data for the selected period")
		return
	}

	respondJSON(w, http.StatusOK, HistoryResponse{
		Maturities:   curve.Maturities,
		Dates:        history.Dates,
		Rates:        history.Rates,
		Observations: history.Len(),
	})
}
