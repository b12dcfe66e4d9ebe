package audit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Expirer: хранилище, умеющее удалять устаревшие партиции
type Expirer interface {
	SweepExpired(ctx context.Context, retentionDays int) (int, error)
}

// Sweeper периодически чистит журнал вне пути обработки запросов.
type Sweeper struct {
	store         Expirer
	retentionDays int
	interval      time.Duration
	deleted       prometheus.Counter // может быть nil
	logger        *zap.Logger
}

func NewSweeper(store Expirer, retentionDays int, interval time.Duration, deleted prometheus.Counter, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:         store,
		retentionDays: retentionDays,
		interval:      interval,
		deleted:       deleted,
		logger:        logger.Named("audit-sweeper"),
	}
}

// RunOnce: один проход очистки.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.store.SweepExpired(ctx, s.retentionDays)
	if s.deleted != nil && n > 0 {
		s.deleted.Add(float64(n))
	}
	if err != nil {
		s.logger.Error("audit sweep failed", zap.Int("deleted", n), zap.Error(err))
		return n, err
	}
	s.logger.Info("audit sweep finished",
		zap.Int("deleted", n),
		zap.Int("retention_days", s.retentionDays),
		zap.Duration("took", time.Since(start)))
	return n, nil
}

// Start крутит очистку по таймеру до отмены контекста. Вызывать в отдельной горутине.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("audit sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("audit sweeper stopping by context")
			return
		case <-ticker.C:
			// ошибка уже залогирована, следующая попытка: на следующем тике
			_, _ = s.RunOnce(ctx)
		}
	}
}
