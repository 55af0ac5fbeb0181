package position

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles position HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new position handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "position").Logger(),
	}
}

// Routes registers position routes on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/position/budget", h.handleGetBudget)
	r.Put("/position/budget", h.handleUpdateBudget)
	r.Get("/position/budget/changelog", h.handleChangelog)
	r.Get("/position/strategies", h.handleStrategies)
	r.Put("/position/active-strategy", h.handleSwitchStrategy)
	r.Get("/position/strategy-config/{name}", h.handleGetStrategyConfig)
	r.Put("/position/strategy-config/{name}", h.handleUpdateStrategyConfig)
	r.Get("/position/suggestion", h.handleSuggestion)
}

func (h *Handler) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var update BudgetUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.service.UpdateBudget(update)
	if errors.Is(err, ErrInvalidRange) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleChangelog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Changelog()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []ChangeLogEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleStrategies(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Strategies())
}

func (h *Handler) handleSwitchStrategy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StrategyName string `json:"strategy_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StrategyName == "" {
		h.writeError(w, http.StatusBadRequest, "strategy_name is required")
		return
	}

	status, err := h.service.SwitchStrategy(req.StrategyName)
	switch {
	case errors.Is(err, ErrUnknownStrategy):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSameStrategy):
		h.writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.writeJSON(w, http.StatusOK, status)
	}
}

func (h *Handler) handleGetStrategyConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	config, err := h.service.StrategyConfig(name)
	if errors.Is(err, ErrUnknownStrategy) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategy_name": name,
		"config":        config,
	})
}

func (h *Handler) handleUpdateStrategyConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	err = h.service.UpdateStrategyConfig(name, data)
	switch {
	case errors.Is(err, ErrUnknownStrategy):
		h.writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		config, _ := h.service.StrategyConfig(name)
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"strategy_name": name,
			"config":        config,
		})
	}
}

func (h *Handler) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	result, epoch, err := h.service.Suggestion()
	if errors.Is(err, ErrUnknownStrategy) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result.Suggestions == nil {
		result.Suggestions = []Suggestion{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"strategy_name": result.StrategyName,
		"summary":       result.Summary,
		"suggestions":   result.Suggestions,
		"extra":         result.Metadata,
		"epoch":         epoch,
	})
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
