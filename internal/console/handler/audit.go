package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/audit"
	"github.com/xela07ax/linc-gateway/internal/domain"
	"github.com/xela07ax/linc-gateway/internal/engine"
)

// AuditService Описываем, что нам нужно от сервиса
type AuditService interface {
	FetchLogs(ctx context.Context, date string, limit int) ([]audit.LogEntry, error)
}

type AuditHandler struct {
	service AuditService
	logger  *zap.Logger
}

func NewAuditHandler(s AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: s, logger: logger.Named("admin-logs")}
}

// LogsResponse: тело ответа GET /admin/logs/{date}
type LogsResponse struct {
	Logs []audit.LogEntry `json:"logs"`
}

// GetLogs возвращает записи аудита за день
// GET /admin/logs/2026-10-18?limit=50
func (h *AuditHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := h.service.FetchLogs(r.Context(), date, limit)
	if err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			h.writeError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD")
			return
		}
		h.logger.Error("failed to fetch audit logs", zap.String("date", date), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "Failed to fetch audit logs")
		return
	}

	engine.WriteJSON(w, http.StatusOK, LogsResponse{Logs: logs})
}

func (h *AuditHandler) writeError(w http.ResponseWriter, status int, message string) {
	engine.WriteJSON(w, status, domain.RoutedResponse{
		Status:    domain.StatusError,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
}
