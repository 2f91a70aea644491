package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/peptiq-labs/peptiq/internal/repository"
)

type MockUsageStats struct {
	mock.Mock
}

func (m *MockUsageStats) Dashboard(ctx context.Context, since time.Time) (*repository.DashboardStats, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.DashboardStats), args.Error(1)
}

func TestDashboardHandler_Get(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newHandler := func(usage UsageStatsSource) *DashboardHandler {
		h := NewDashboardHandler(usage)
		h.now = func() time.Time { return now }
		return h
	}

	t.Run("default 24h window", func(t *testing.T) {
		usage := new(MockUsageStats)
		usage.On("Dashboard", mock.Anything, now.Add(-24*time.Hour)).Return(&repository.DashboardStats{
			TotalQueries: 10,
			SuccessCount: 9,
			CacheHitRate: 0.4,
		}, nil)

		rec := httptest.NewRecorder()
		newHandler(usage).Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Data repository.DashboardStats `json:"data"`
		}
		require.NoError(t, jsonDecode(rec, &envelope))
		assert.Equal(t, int64(10), envelope.Data.TotalQueries)
		assert.InDelta(t, 0.4, envelope.Data.CacheHitRate, 1e-9)
	})

	t.Run("custom window", func(t *testing.T) {
		usage := new(MockUsageStats)
		usage.On("Dashboard", mock.Anything, now.Add(-72*time.Hour)).Return(&repository.DashboardStats{}, nil)

		rec := httptest.NewRecorder()
		newHandler(usage).Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard?window=72h", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		usage.AssertExpectations(t)
	})

	t.Run("invalid window rejected", func(t *testing.T) {
		usage := new(MockUsageStats)
		rec := httptest.NewRecorder()
		newHandler(usage).Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard?window=yesterday", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		usage.AssertNotCalled(t, "Dashboard", mock.Anything, mock.Anything)
	})

	t.Run("negative window rejected", func(t *testing.T) {
		usage := new(MockUsageStats)
		rec := httptest.NewRecorder()
		newHandler(usage).Get(rec, httptest.NewRequest(http.MethodGet, "/dashboard?window=-1h", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
