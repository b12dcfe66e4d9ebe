package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/linc-gateway/internal/infra"
)

const scanBatch = 500

// RedisStore: append-only журнал аудита с дневными партициями.
// Каждая запись живет под ключом linc:logs:{date}:{correlation_id} с TTL ретеншна.
// Запись и очистка: независимые операции без транзакций: на границе очистки
// возможны повторное удаление или пропуск ключа, для аудита это допустимо.
type RedisStore struct {
	rdb       *redis.Client
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewRedisStore(rdb *redis.Client, retention time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		rdb:       rdb,
		retention: retention,
		logger:    logger.With(zap.String("mod", "audit-store")),
		now:       time.Now,
	}
}

// Append пишет одну запись. Записанная запись не перезаписывается:
// повтор id в той же партиции отбрасывается с предупреждением.
func (s *RedisStore) Append(ctx context.Context, entry LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	key := infra.LogKey(entry.DatePartition(), entry.CorrelationID)
	created, err := s.rdb.SetNX(ctx, key, data, s.retention).Result()
	if err != nil {
		return fmt.Errorf("audit: append %s: %w", key, err)
	}
	if !created {
		s.dropped(key, entry)
	}
	return nil
}

// WriteBatch пишет пачку записей одним пайплайном (используется Writer).
func (s *RedisStore) WriteBatch(ctx context.Context, entries []LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	type pending struct {
		key   string
		entry LogEntry
		cmd   *redis.BoolCmd
	}
	writes := make([]pending, 0, len(entries))

	pipe := s.rdb.Pipeline()
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			s.logger.Error("skip unserializable entry", zap.String("correlation_id", e.CorrelationID), zap.Error(err))
			continue
		}
		key := infra.LogKey(e.DatePartition(), e.CorrelationID)
		writes = append(writes, pending{key: key, entry: e, cmd: pipe.SetNX(ctx, key, data, s.retention)})
	}
	if len(writes) == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("audit: batch write: %w", err)
	}
	for _, w := range writes {
		if !w.cmd.Val() {
			s.dropped(w.key, w.entry)
		}
	}
	return nil
}

// dropped: ключ уже занят более ранней записью, она остается как есть
func (s *RedisStore) dropped(key string, e LogEntry) {
	s.logger.Warn("audit entry dropped: key already written",
		zap.String("key", key),
		zap.String("agent", e.Agent),
		zap.String("task", e.Task),
		zap.String("outcome", string(e.Outcome)),
	)
}

// QueryByDate возвращает записи одной партиции, не больше limit. Порядок не гарантирован.
func (s *RedisStore) QueryByDate(ctx context.Context, date string, limit int) ([]LogEntry, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	keys := make([]string, 0, scanBatch)
	iter := s.rdb.Scan(ctx, 0, infra.LogDatePattern(date), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan %s: %w", date, err)
	}

	// Фронтенд получает [] вместо null
	entries := make([]LogEntry, 0, len(keys))
	if len(keys) == 0 {
		return entries, nil
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("audit: mget %s: %w", date, err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// ключ успел истечь или был удален очисткой между SCAN и MGET
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			s.logger.Warn("skip corrupted audit entry", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SweepExpired удаляет записи, чья партиция старше now - retentionDays. Возвращает число удаленных.
func (s *RedisStore) SweepExpired(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("audit: retention must be positive, got %d", retentionDays)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, -retentionDays)

	deleted := 0
	iter := s.rdb.Scan(ctx, 0, infra.RedisKeyLogsPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		date, ok := partitionOf(key)
		if !ok {
			s.logger.Debug("skip key without date partition", zap.String("key", key))
			continue
		}
		if !date.Before(cutoff) {
			continue
		}
		// Del на уже удаленном ключе вернет 0: двойное удаление не считается
		n, err := s.rdb.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("audit: delete %s: %w", key, err)
		}
		deleted += int(n)
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("audit: sweep scan: %w", err)
	}
	return deleted, nil
}

// partitionOf достает дату из ключа linc:logs:{date}:{id}
func partitionOf(key string) (time.Time, bool) {
	rest := strings.TrimPrefix(key, infra.RedisKeyLogsPrefix)
	date, _, found := strings.Cut(rest, ":")
	if !found {
		return time.Time{}, false
	}
	t, err := ParseDate(date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
