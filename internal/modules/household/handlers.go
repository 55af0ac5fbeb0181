package household

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles household CRUD HTTP requests
type Handler struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandler creates a new household handler
func NewHandler(repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "household").Logger(),
	}
}

// Routes registers the CRUD routes on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", h.handleListHoldings)
		r.Post("/", h.handleCreateHolding)
		r.Put("/{id}", h.handleUpdateHolding)
		r.Delete("/{id}", h.handleDeleteHolding)
	})
	r.Route("/liquid", func(r chi.Router) {
		r.Get("/", h.handleListLiquid)
		r.Post("/", h.handleCreateLiquid)
		r.Put("/{id}", h.handleUpdateLiquid)
		r.Delete("/{id}", h.handleDeleteLiquid)
	})
	r.Route("/stable", func(r chi.Router) {
		r.Get("/", h.handleListStable)
		r.Post("/", h.handleCreateStable)
		r.Put("/{id}", h.handleUpdateStable)
		r.Delete("/{id}", h.handleDeleteStable)
	})
	r.Route("/insurance", func(r chi.Router) {
		r.Get("/", h.handleListInsurance)
		r.Post("/", h.handleCreateInsurance)
		r.Put("/{id}", h.handleUpdateInsurance)
		r.Delete("/{id}", h.handleDeleteInsurance)
	})
}

func (h *Handler) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.repo.ListHoldings()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if holdings == nil {
		holdings = []Holding{}
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

func (h *Handler) handleCreateHolding(w http.ResponseWriter, r *http.Request) {
	var req Holding
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.FundCode) == "" {
		h.writeError(w, http.StatusBadRequest, "fund_code is required")
		return
	}
	if req.Shares <= 0 || req.CostPrice < 0 {
		h.writeError(w, http.StatusBadRequest, "shares must be positive and cost_price non-negative")
		return
	}

	created, err := h.repo.CreateHolding(req)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req Holding
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ID = id
	if err := h.repo.UpdateHolding(req); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteHolding(id); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (h *Handler) handleListLiquid(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.ListLiquidAssets()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if assets == nil {
		assets = []LiquidAsset{}
	}
	h.writeJSON(w, http.StatusOK, assets)
}

func (h *Handler) handleCreateLiquid(w http.ResponseWriter, r *http.Request) {
	var req LiquidAsset
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := h.repo.CreateLiquidAsset(req)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateLiquid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req LiquidAsset
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ID = id
	if err := h.repo.UpdateLiquidAsset(req); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleDeleteLiquid(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteLiquidAsset(id); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (h *Handler) handleListStable(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.ListStableAssets()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if assets == nil {
		assets = []StableAsset{}
	}
	h.writeJSON(w, http.StatusOK, assets)
}

func (h *Handler) handleCreateStable(w http.ResponseWriter, r *http.Request) {
	var req StableAsset
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := h.repo.CreateStableAsset(req)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateStable(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req StableAsset
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ID = id
	if err := h.repo.UpdateStableAsset(req); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleDeleteStable(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteStableAsset(id); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (h *Handler) handleListInsurance(w http.ResponseWriter, r *http.Request) {
	policies, err := h.repo.ListInsurancePolicies()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if policies == nil {
		policies = []InsurancePolicy{}
	}
	h.writeJSON(w, http.StatusOK, policies)
}

func (h *Handler) handleCreateInsurance(w http.ResponseWriter, r *http.Request) {
	var req InsurancePolicy
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	created, err := h.repo.CreateInsurancePolicy(req)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdateInsurance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req InsurancePolicy
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ID = id
	if err := h.repo.UpdateInsurancePolicy(req); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *Handler) handleDeleteInsurance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteInsurancePolicy(id); err != nil {
		h.writeMutationError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// Helper methods

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeMutationError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "Record not found")
		return
	}
	h.writeError(w, http.StatusInternalServerError, err.Error())
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
