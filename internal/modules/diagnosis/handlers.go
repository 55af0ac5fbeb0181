package diagnosis

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles diagnosis report HTTP requests
type Handler struct {
	store *FileStore
	log   zerolog.Logger
}

// NewHandler creates a new diagnosis handler
func NewHandler(store *FileStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "diagnosis").Logger(),
	}
}

// Routes registers diagnosis routes on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/diagnosis/report", h.handleReport)
	r.Get("/diagnosis/summary", h.handleSummary)
	r.Put("/diagnosis/report", h.handleStoreReport)
}

// handleReport serves the raw report document. A missing report is 404 with a
// distinct code so clients render "not generated yet" instead of an error.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Raw()
	if errors.Is(err, ErrNotGenerated) {
		h.writeNotGenerated(w)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// handleSummary serves the derived view: health score, issue counts, issues
// sorted by severity, buckets with benchmark status, and scan kinds.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.Load()
	if errors.Is(err, ErrNotGenerated) {
		h.writeNotGenerated(w)
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	issues := report.Issues()
	SortIssuesBySeverity(issues)

	counts := map[string]int{}
	for _, issue := range issues {
		counts[issue.Severity]++
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"report_date":     report.ReportDate(),
		"health_score":    HealthScore(issues),
		"overview":        report.Overview(),
		"issues":          issues,
		"issue_counts":    counts,
		"buckets":         report.Buckets(DefaultBenchmarks),
		"scans":           report.Scans(),
		"supplementary":   report.Supplementary(),
		"exposures":       report.Exposures(),
		"recommendations": report.Recommendations(),
		"disclaimer":      report.Disclaimer(),
	})
}

func (h *Handler) handleStoreReport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if err := h.store.Save(data); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"stored": true})
}

// Helper methods

func (h *Handler) writeNotGenerated(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "Diagnosis report not generated",
		"code":  "report_not_generated",
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
