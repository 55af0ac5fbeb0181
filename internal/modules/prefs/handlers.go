package prefs

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for preference endpoints
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new prefs handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "prefs").Logger(),
	}
}

// Routes registers prefs routes on the given router
func (h *Handler) Routes(r chi.Router) {
	r.Get("/prefs", h.handleAll)
	r.Get("/prefs/{key}", h.handleGet)
	r.Put("/prefs/{key}", h.handleSet)
	r.Delete("/prefs/{key}", h.handleDelete)
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.All()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list prefs")
		h.writeError(w, http.StatusInternalServerError, "Failed to list prefs")
		return
	}
	h.writeJSON(w, http.StatusOK, all)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.repo.Get(key)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to get pref")
		h.writeError(w, http.StatusInternalServerError, "Failed to get pref")
		return
	}
	if value == nil {
		h.writeError(w, http.StatusNotFound, "Pref not set")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": *value})
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req struct {
		Value string `json:"value"`
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64*1024))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Request body too large")
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.repo.Set(key, req.Value); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to set pref")
		h.writeError(w, http.StatusInternalServerError, "Failed to set pref")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.repo.Delete(key); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to delete pref")
		h.writeError(w, http.StatusInternalServerError, "Failed to delete pref")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"deleted": key})
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
