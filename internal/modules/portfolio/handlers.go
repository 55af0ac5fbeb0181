package portfolio

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// Routes registers portfolio routes on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/portfolio/summary", h.handleSummary)
	r.Get("/portfolio/by-platform", h.handleByPlatform)
	r.Get("/portfolio/trend", h.handleTrend)
	r.Post("/portfolio/snapshot", h.handleWriteSnapshot)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleByPlatform(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ByPlatform()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"platforms": groups,
	})
}

// handleTrend serves the snapshot series. Either an explicit start/end range
// or days=N counting back from today; days defaults to 90.
func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	if start == "" && end == "" {
		days := 90
		if raw := r.URL.Query().Get("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				h.writeError(w, http.StatusBadRequest, "Invalid days parameter")
				return
			}
			days = parsed
		}
		start = time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	}

	trend, err := h.service.Trend(start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, trend)
}

func (h *Handler) handleWriteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.service.WriteDailySnapshot(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"written": true})
}

// Helper methods

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
