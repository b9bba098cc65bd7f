// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/curvelab/yieldstress/internal/analysis"
	"github.com/curvelab/yieldstress/internal/pca"
	"github.com/curvelab/yieldstress/internal/stats"
	"github.com/curvelab/yieldstress/internal/stress"
	"github.com/curvelab/yieldstress/pkg/logger"
)

const dateLayout = "2006-01-02"

// AnalysisHandler handles the analysis endpoints.
type AnalysisHandler struct {
	service  *analysis.Service
	exporter *analysis.Exporter
	logger   *logger.Logger
}

// NewAnalysisHandler creates an analysis handler.
func NewAnalysisHandler(service *analysis.Service, exporter *analysis.Exporter, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:  service,
		exporter: exporter,
		logger:   log,
	}
}

// AnalyzeRequest selects the observation window.
type AnalyzeRequest struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD, defaults to today
}

// Analyze runs the full pipeline and returns the result as JSON.
// POST /api/analyze
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	from, to, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Run(ctx, from, to)
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Export runs the pipeline and streams the result as CSV.
// GET /api/analyze/export?from=...&to=...&kind=scenarios|scores
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	from, to, err := parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := q.Get("kind")
	if kind == "" {
		kind = "scenarios"
	}
	if kind != "scenarios" && kind != "scores" {
		respondError(w, http.StatusBadRequest, "Invalid kind (valid: scenarios, scores)")
		return
	}

	result, err := h.service.Run(ctx, from, to)
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	filename := fmt.Sprintf("yieldstress_%s_%s_%s.csv",
		kind, from.Format(dateLayout), to.Format(dateLayout))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	switch kind {
	case "scenarios":
		err = h.exporter.WriteScenarios(w, result)
	case "scores":
		err = h.exporter.WriteScores(w, result)
	}
	if err != nil {
		// Headers are already out; log and drop the connection.
		h.logger.WithError(err).Error("CSV export failed mid-stream")
	}
}

// respondRunError maps pipeline errors onto HTTP statuses.
func (h *AnalysisHandler) respondRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stats.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analysis.ErrNoData):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, stress.ErrInsufficientHistory),
		errors.Is(err, pca.ErrDegenerateInput):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.WithError(err).Error("Analysis failed")
		respondError(w, http.StatusInternalServerError, "Analysis failed")
	}
}

// parseRange parses the window, defaulting to the trailing two years.
func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error

	if toStr != "" {
		to, err = time.Parse(dateLayout, toStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid 'to' date format (expected YYYY-MM-DD)")
		}
	} else {
		to = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if fromStr != "" {
		from, err = time.Parse(dateLayout, fromStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid 'from' date format (expected YYYY-MM-DD)")
		}
	} else {
		from = to.AddDate(-2, 0, 0)
	}

	return from, to, nil
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
