package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

// ErrCorrelationNotFound: записи с таким correlation id нет
var ErrCorrelationNotFound = errors.New("correlation record not found")

const correlationSchema = `
CREATE TABLE IF NOT EXISTS correlation_records (
	correlation_id TEXT NOT NULL,
	bundle_id      TEXT NOT NULL,
	message_type   TEXT NOT NULL,
	target_agent   TEXT NOT NULL,
	processed_at   TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	PRIMARY KEY (correlation_id, bundle_id)
);
CREATE INDEX IF NOT EXISTS correlation_records_bundle_idx ON correlation_records (bundle_id);
`

const selectCorrelation = `
	SELECT correlation_id, message_type, target_agent, bundle_id, processed_at, status
	FROM correlation_records`

// DBTX: общий контракт пула и транзакции pgx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ DBTX = (*pgxpool.Pool)(nil)

// CorrelationRepo хранит записи корреляции оркестратора. Записи только добавляются, удаление: внешняя политика.
type CorrelationRepo struct {
	db DBTX
}

func NewCorrelationRepo(db DBTX) *CorrelationRepo {
	return &CorrelationRepo{db: db}
}

// EnsureSchema создает таблицу при первом старте
func (r *CorrelationRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, correlationSchema); err != nil {
		return fmt.Errorf("postgres: failed to ensure correlation schema: %w", err)
	}
	return nil
}

// SaveCorrelation пишет запись один раз на пару (correlation id, bundle id).
// Повтор пары не перезаписывает исходную и возвращает domain.ErrCorrelationExists.
func (r *CorrelationRepo) SaveCorrelation(ctx context.Context, rec domain.CorrelationRecord) error {
	query := `
		INSERT INTO correlation_records (correlation_id, message_type, target_agent, bundle_id, processed_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (correlation_id, bundle_id) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		rec.CorrelationID, rec.MessageType, rec.TargetAgent, rec.BundleID,
		time.UnixMilli(rec.ProcessedAt).UTC(), string(rec.Status))
	if err != nil {
		return fmt.Errorf("postgres: failed to save correlation %s: %w", rec.CorrelationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: correlation %s, bundle %s", domain.ErrCorrelationExists, rec.CorrelationID, rec.BundleID)
	}
	return nil
}

// ListByCorrelation: все бандлы, прошедшие под одним correlation id, новые первыми
func (r *CorrelationRepo) ListByCorrelation(ctx context.Context, correlationID string) ([]domain.CorrelationRecord, error) {
	records, err := r.list(ctx, selectCorrelation+` WHERE correlation_id = $1 ORDER BY processed_at DESC`, correlationID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCorrelationNotFound, correlationID)
	}
	return records, nil
}

// ListByBundle: все попытки обработки одного бандла, новые первыми
func (r *CorrelationRepo) ListByBundle(ctx context.Context, bundleID string) ([]domain.CorrelationRecord, error) {
	return r.list(ctx, selectCorrelation+` WHERE bundle_id = $1 ORDER BY processed_at DESC`, bundleID)
}

func (r *CorrelationRepo) list(ctx context.Context, query string, arg string) ([]domain.CorrelationRecord, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list correlations: %w", err)
	}
	defer rows.Close()

	records := make([]domain.CorrelationRecord, 0)
	for rows.Next() {
		var (
			rec         domain.CorrelationRecord
			processedAt time.Time
			status      string
		)
		if err := rows.Scan(&rec.CorrelationID, &rec.MessageType, &rec.TargetAgent, &rec.BundleID, &processedAt, &status); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan correlation: %w", err)
		}
		rec.ProcessedAt = processedAt.UnixMilli()
		rec.Status = domain.CorrelationStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}
