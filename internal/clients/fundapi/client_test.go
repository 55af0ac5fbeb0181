package fundapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotConfigured(t *testing.T) {
	client := NewClient("", zerolog.Nop())

	assert.False(t, client.Configured())
	_, err := client.GetFundInfo(context.Background(), "000001")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGetFundInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/funds/000001", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fund_code":"000001","fund_name":"华夏成长混合","fund_type":"混合型"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	info, err := client.GetFundInfo(context.Background(), "000001")
	require.NoError(t, err)
	assert.Equal(t, "华夏成长混合", info.FundName)
	assert.Equal(t, "混合型", info.FundType)
}

func TestNotFoundIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	_, err := client.GetFundInfo(context.Background(), "999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerErrorWrapsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	_, err := client.GetNavHistory(context.Background(), "000001", "")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestGetNavHistorySinceParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("start"))
		_, _ = w.Write([]byte(`[{"date":"2024-01-02","nav":1.234}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	points, err := client.GetNavHistory(context.Background(), "000001", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 1.234, points[0].Nav)
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetAllocation(ctx, "000001")
	assert.Error(t, err)
}
