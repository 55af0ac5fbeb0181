package funds

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicfin/mosaic/internal/clients/fundapi"
	"github.com/mosaicfin/mosaic/internal/domain"
	"github.com/mosaicfin/mosaic/internal/events"
)

func newTestRouter(t *testing.T) (*Repository, chi.Router) {
	t.Helper()
	repo := newTestRepo(t)
	service := NewService(repo, fundapi.NewClient("", zerolog.Nop()), events.NewManager(zerolog.Nop()), zerolog.Nop())
	handler := NewHandler(service, nil, nil, zerolog.Nop())

	r := chi.NewRouter()
	handler.Routes(r)
	return repo, r
}

func TestOverrideAllocationStoresManualRows(t *testing.T) {
	repo, router := newTestRouter(t)

	body := `[
		{"dimension": "asset_class", "category": "股票", "percentage": 60},
		{"dimension": "asset_class", "category": "债券", "percentage": 40}
	]`
	req := httptest.NewRequest("PUT", "/funds/007380/allocation", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	rows, err := repo.AllocationsForDimension("007380", "asset_class")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, AllocationSourceManual, row.Source)
	}
}

func TestOverrideAllocationReplacesPreviousOverride(t *testing.T) {
	repo, router := newTestRouter(t)

	require.NoError(t, repo.ReplaceAllocations("007380", AllocationSourceManual, []domain.FundAllocationRow{
		{Dimension: "asset_class", Category: "股票", Percentage: 100},
	}))
	require.NoError(t, repo.ReplaceAllocations("007380", AllocationSourceAPI, []domain.FundAllocationRow{
		{Dimension: "geography", Category: "A股", Percentage: 100},
	}))

	body := `[{"dimension": "asset_class", "category": "现金", "percentage": 100}]`
	req := httptest.NewRequest("PUT", "/funds/007380/allocation", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The old manual row is gone, the API-sourced row untouched.
	rows, err := repo.AllocationsForDimension("007380", "asset_class")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "现金", rows[0].Category)

	geo, err := repo.AllocationsForDimension("007380", "geography")
	require.NoError(t, err)
	assert.Len(t, geo, 1)
}

func TestOverrideAllocationRejectsBadRows(t *testing.T) {
	_, router := newTestRouter(t)

	for _, body := range []string{
		`{"dimension": "asset_class"}`,
		`[{"category": "股票", "percentage": 60}]`,
		`[{"dimension": "asset_class", "percentage": 60}]`,
	} {
		req := httptest.NewRequest("PUT", "/funds/007380/allocation", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestGetFundNotFound(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/funds/999999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp["error"])
}
