package funds

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mosaicfin/mosaic/internal/clients/fundapi"
	"github.com/mosaicfin/mosaic/internal/domain"
)

// CodeSource supplies the fund codes a whole-portfolio refresh should cover.
type CodeSource interface {
	DistinctFundCodes() ([]string, error)
}

// Handler handles fund data HTTP requests
type Handler struct {
	service *Service
	batch   *BatchRefresher
	codes   CodeSource
	log     zerolog.Logger
}

// NewHandler creates a new funds handler
func NewHandler(service *Service, batch *BatchRefresher, codes CodeSource, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		batch:   batch,
		codes:   codes,
		log:     log.With().Str("handler", "funds").Logger(),
	}
}

// Routes registers fund data routes on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/funds/{code}", h.handleGetFund)
	r.Get("/funds/{code}/nav-history", h.handleNavHistory)
	r.Get("/funds/{code}/allocation", h.handleAllocation)
	r.Put("/funds/{code}/allocation", h.handleOverrideAllocation)
	r.Get("/funds/{code}/top-holdings", h.handleTopHoldings)
	r.Post("/funds/{code}/refresh", h.handleRefresh)
	r.Post("/funds/refresh-all", h.handleRefreshAll)
}

func (h *Handler) handleGetFund(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	fund, err := h.service.Repo().GetFund(code)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if fund == nil {
		h.writeError(w, http.StatusNotFound, "Fund not found")
		return
	}

	latest, err := h.service.Repo().LatestNav(code)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"fund":       fund,
		"latest_nav": latest,
	})
}

func (h *Handler) handleNavHistory(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	records, err := h.service.Repo().NavHistory(code, start, end)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"fund_code": code,
		"records":   records,
		"count":     len(records),
	})
}

func (h *Handler) handleAllocation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	grouped, err := h.service.Repo().AllocationsByFund(code)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"fund_code":  code,
		"dimensions": grouped,
	})
}

// handleOverrideAllocation replaces a fund's manual allocation rows. Manual
// rows are stored under source "manual" so the next API refresh only swaps
// out its own rows and the override stays in place.
func (h *Handler) handleOverrideAllocation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var rows []domain.FundAllocationRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid allocation payload")
		return
	}
	for _, row := range rows {
		if row.Dimension == "" || row.Category == "" {
			h.writeError(w, http.StatusBadRequest, "Allocation rows require dimension and category")
			return
		}
	}

	if err := h.service.Repo().ReplaceAllocations(code, AllocationSourceManual, rows); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info().Str("fund_code", code).Int("rows", len(rows)).Msg("Manual allocation override stored")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"fund_code": code,
		"rows":      len(rows),
	})
}

func (h *Handler) handleTopHoldings(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	holdings, err := h.service.Repo().TopHoldings(code)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"fund_code":    code,
		"top_holdings": holdings,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	err := h.service.RefreshFund(r.Context(), code)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"fund_code": code,
			"refreshed": true,
		})
	case errors.Is(err, fundapi.ErrNotConfigured):
		h.writeError(w, http.StatusServiceUnavailable, "Fund data source not configured")
	case errors.Is(err, fundapi.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "Fund not known to data source")
	default:
		h.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *Handler) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	if !h.service.RefreshAvailable() {
		h.writeError(w, http.StatusServiceUnavailable, "Fund data source not configured")
		return
	}

	codes, err := h.codes.DistinctFundCodes()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(codes) == 0 {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"total":     0,
			"succeeded": []string{},
			"failed":    map[string]string{},
		})
		return
	}

	result := h.batch.Run(r.Context(), codes)
	h.writeJSON(w, http.StatusOK, result)
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
