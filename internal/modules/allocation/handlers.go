package allocation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles allocation HTTP requests
type Handler struct {
	service *Service
	log     zerolog.Logger
}

// NewHandler creates a new allocation handler
func NewHandler(service *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "allocation").Logger(),
	}
}

// Routes registers allocation routes on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/portfolio/allocation", h.handleAllocation)
}

// handleAllocation serves the look-through breakdown along one dimension and
// its chart rendering. dimension defaults to asset_class.
func (h *Handler) handleAllocation(w http.ResponseWriter, r *http.Request) {
	dimension := r.URL.Query().Get("dimension")
	if dimension == "" {
		dimension = DimensionAssetClass
	}
	if !ValidDimension(dimension) {
		h.writeError(w, http.StatusBadRequest, "Unknown dimension: "+dimension)
		return
	}

	breakdown, err := h.service.Aggregate(dimension)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"dimension":  breakdown.Dimension,
		"categories": breakdown.Categories,
		"coverage":   breakdown.Coverage,
		"chart":      BuildChartSeries(breakdown),
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
