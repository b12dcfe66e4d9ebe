package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/audit"
	"github.com/xela07ax/linc-gateway/internal/console/service"
	"github.com/xela07ax/linc-gateway/internal/domain"
)

type brokenProvider struct{}

func (brokenProvider) QueryByDate(context.Context, string, int) ([]audit.LogEntry, error) {
	return nil, errors.New("redis: connection pool timeout")
}

func newAdminRouter(provider service.AuditLogProvider) http.Handler {
	h := NewAuditHandler(service.NewAuditService(provider, 100, 1000), zap.NewNop())
	r := chi.NewRouter()
	r.Get("/admin/logs/{date}", h.GetLogs)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetLogs_ReturnsPartition(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := audit.NewRedisStore(rdb, 30*24*time.Hour, zap.NewNop())

	ctx := context.Background()
	day := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(ctx, audit.LogEntry{
			Timestamp: day.UnixMilli(), CorrelationID: id, Agent: "claimlinc", Task: "submit", Outcome: domain.OutcomeSuccess,
		}))
	}
	require.NoError(t, store.Append(ctx, audit.LogEntry{
		Timestamp: day.AddDate(0, 0, 1).UnixMilli(), CorrelationID: "other-day", Agent: "claimlinc", Task: "submit", Outcome: domain.OutcomeSuccess,
	}))

	router := newAdminRouter(store)

	rec := get(t, router, "/admin/logs/2026-10-17")
	require.Equal(t, http.StatusOK, rec.Code)
	var body LogsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	ids := make([]string, 0, len(body.Logs))
	for _, e := range body.Logs {
		ids = append(ids, e.CorrelationID)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)

	rec = get(t, router, "/admin/logs/2026-10-17?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Logs, 2)

	// пустой день: пустой список, а не null
	rec = get(t, router, "/admin/logs/2026-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"logs":[]}`, rec.Body.String())
}

func TestGetLogs_BadInput(t *testing.T) {
	router := newAdminRouter(brokenProvider{})

	for _, path := range []string{"/admin/logs/2026-13-01", "/admin/logs/yesterday", "/admin/logs/2026-02-30"} {
		rec := get(t, router, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := get(t, router, "/admin/logs/2026-10-17?limit=-5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLogs_StoreFailure(t *testing.T) {
	rec := get(t, newAdminRouter(brokenProvider{}), "/admin/logs/2026-10-17")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuditService_ClampsLimit(t *testing.T) {
	var got int
	svc := service.NewAuditService(limitSpy(func(n int) { got = n }), 50, 200)

	_, err := svc.FetchLogs(context.Background(), "2026-10-17", 0)
	require.NoError(t, err)
	assert.Equal(t, 50, got)

	_, err = svc.FetchLogs(context.Background(), "2026-10-17", 10_000)
	require.NoError(t, err)
	assert.Equal(t, 200, got)
}

type limitSpy func(int)

func (f limitSpy) QueryByDate(_ context.Context, _ string, limit int) ([]audit.LogEntry, error) {
	f(limit)
	return []audit.LogEntry{}, nil
}
