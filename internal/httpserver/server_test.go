package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geocast/geocast/internal/config"
	"github.com/geocast/geocast/internal/metrics"
	"github.com/geocast/geocast/internal/models"
)

func testServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Delivery:  config.DeliveryConfig{SuccessRate: 1.0, Concurrency: 2},
		Targeting: config.TargetingConfig{SampleSize: 5},
		Dashboard: config.DashboardConfig{RecentLimit: 5},
	}
	return NewServer(&Dependencies{Config: cfg, Logger: zap.NewNop()})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := testServer(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCampaignLifecycle(t *testing.T) {
	h := testServer(t)

	rec := doJSON(t, h, http.MethodPost, "/campaigns", map[string]string{
		"name": "Promo", "message": "hello",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.CampaignStatusDraft, created.Status)

	t.Run("get", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/campaigns/"+created.ID, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/campaigns", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var list []models.Campaign
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list, 1)
	})

	t.Run("patch rename", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, "/campaigns/"+created.ID, map[string]string{"name": "Renamed"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var c models.Campaign
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		assert.Equal(t, "Renamed", c.Name)
	})

	t.Run("patch unknown location is 404", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPatch, "/campaigns/"+created.ID, map[string]string{"targeting_location_id": "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("send without targeting location conflicts", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPost, "/campaigns/"+created.ID+"/send", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("preview without targeting location is empty", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/campaigns/"+created.ID+"/preview-targeting", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"matched_count":0`)
	})

	t.Run("stats for fresh campaign", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/campaigns/"+created.ID+"/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success_rate":0`)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodDelete, "/campaigns/"+created.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, h, http.MethodGet, "/campaigns/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCampaignErrors(t *testing.T) {
	h := testServer(t)

	t.Run("unknown campaign is 404", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/campaigns/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid json is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/campaigns", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodPut, "/campaigns", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestDashboardEndpoints(t *testing.T) {
	h := testServer(t)

	t.Run("summary", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/dashboard/summary", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"total_campaigns":0`)
	})

	t.Run("hourly has 24 buckets", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/dashboard/hourly", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var buckets []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buckets))
		assert.Len(t, buckets, 24)
	})

	t.Run("hourly rejects bad date", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/dashboard/hourly?date=today", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("distribution", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/dashboard/distribution", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("recent rejects bad limit", func(t *testing.T) {
		rec := doJSON(t, h, http.MethodGet, "/dashboard/recent?limit=-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	// promauto registers in the default registry, so NewMetrics may only
	// run once per test binary.
	cfg := &config.Config{
		Delivery:  config.DeliveryConfig{SuccessRate: 1.0, Concurrency: 2},
		Targeting: config.TargetingConfig{SampleSize: 5},
		Dashboard: config.DashboardConfig{RecentLimit: 5},
		Metrics:   config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	h := NewServer(&Dependencies{
		Config:  cfg,
		Logger:  zap.NewNop(),
		Metrics: metrics.NewMetrics("geocast_httptest"),
	})

	rec := doJSON(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
