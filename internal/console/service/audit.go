package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/linc-gateway/internal/audit"
)

// AuditLogProvider описывает контракт для чтения данных аудита.
type AuditLogProvider interface {
	QueryByDate(ctx context.Context, date string, limit int) ([]audit.LogEntry, error)
}

type AuditService struct {
	repo         AuditLogProvider
	defaultLimit int
	maxLimit     int
}

func NewAuditService(repo AuditLogProvider, defaultLimit, maxLimit int) *AuditService {
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &AuditService{
		repo:         repo,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// FetchLogs возвращает записи одной дневной партиции.
// limit <= 0 означает лимит по умолчанию, сверх максимума обрезается.
func (s *AuditService) FetchLogs(ctx context.Context, date string, limit int) ([]audit.LogEntry, error) {
	if _, err := audit.ParseDate(date); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = s.defaultLimit
	case limit > s.maxLimit:
		limit = s.maxLimit
	}

	logs, err := s.repo.QueryByDate(ctx, date, limit)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch logs: %w", err)
	}
	return logs, nil
}
