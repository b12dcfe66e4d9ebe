package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xela07ax/linc-gateway/internal/domain"
	"github.com/xela07ax/linc-gateway/internal/infra"
)

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStore(rdb, 30*24*time.Hour, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s, mr
}

func entryAt(id string, at time.Time) LogEntry {
	return LogEntry{
		Timestamp:     at.UnixMilli(),
		CorrelationID: id,
		Agent:         "claimlinc",
		Task:          "submit",
		Outcome:       domain.OutcomeSuccess,
		DurationMs:    12,
	}
}

func TestAppend_QueryByExactPartitionOnly(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	e := entryAt("req-1", fixedNow)
	require.NoError(t, s.Append(ctx, e))

	got, err := s.QueryByDate(ctx, "2026-10-18", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e, got[0])

	for _, other := range []string{"2026-10-17", "2026-10-19"} {
		got, err := s.QueryByDate(ctx, other, 10)
		require.NoError(t, err)
		assert.Empty(t, got, "entry must not leak into %s", other)
		assert.NotNil(t, got)
	}
}

func TestAppend_SetsRetentionTTL(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, s.Append(context.Background(), entryAt("req-ttl", fixedNow)))

	ttl := mr.TTL(infra.LogKey("2026-10-18", "req-ttl"))
	assert.Equal(t, 30*24*time.Hour, ttl)
}

func TestAppend_ReusedIDKeepsFirstEntry(t *testing.T) {
	s, _ := newTestStore(t)
	core, logs := observer.New(zapcore.WarnLevel)
	s.logger = zap.New(core)
	ctx := context.Background()

	first := entryAt("client-id", fixedNow)
	require.NoError(t, s.Append(ctx, first))

	rewrite := entryAt("client-id", fixedNow.Add(time.Minute))
	rewrite.Agent = "authlinc"
	rewrite.Outcome = domain.OutcomeDevelopmentEcho
	require.NoError(t, s.Append(ctx, rewrite))

	got, err := s.QueryByDate(ctx, "2026-10-18", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, first, got[0])
	assert.Equal(t, 1, logs.FilterMessage("audit entry dropped: key already written").Len())
}

func TestWriteBatch_ReusedIDKeepsFirstEntry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	first := entryAt("batch-id", fixedNow)
	require.NoError(t, s.Append(ctx, first))

	dup := entryAt("batch-id", fixedNow)
	dup.Outcome = domain.OutcomeConnectionError
	fresh := entryAt("batch-new", fixedNow)
	require.NoError(t, s.WriteBatch(ctx, []LogEntry{dup, fresh}))

	got, err := s.QueryByDate(ctx, "2026-10-18", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	byID := map[string]LogEntry{got[0].CorrelationID: got[0], got[1].CorrelationID: got[1]}
	assert.Equal(t, first, byID["batch-id"])
	assert.Equal(t, fresh, byID["batch-new"])
	assert.Equal(t, 30*24*time.Hour, mr.TTL(infra.LogKey("2026-10-18", "batch-new")))
}

func TestQueryByDate_RespectsLimit(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	batch := make([]LogEntry, 0, 5)
	for i := 0; i < 5; i++ {
		batch = append(batch, entryAt(fmt.Sprintf("req-%d", i), fixedNow))
	}
	require.NoError(t, s.WriteBatch(ctx, batch))

	got, err := s.QueryByDate(ctx, "2026-10-18", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	all, err := s.QueryByDate(ctx, "2026-10-18", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestQueryByDate_SkipsCorruptedValues(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entryAt("good", fixedNow)))
	require.NoError(t, mr.Set(infra.LogKey("2026-10-18", "bad"), "{not json"))

	got, err := s.QueryByDate(ctx, "2026-10-18", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].CorrelationID)
}

func TestQueryByDate_RejectsBadDate(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.QueryByDate(context.Background(), "18-10-2026", 10)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestSweepExpired_DeletesOldPartitionsOnly(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	old40 := entryAt("old-40", fixedNow.AddDate(0, 0, -40))
	old31 := entryAt("old-31", fixedNow.AddDate(0, 0, -31))
	recent29 := entryAt("recent-29", fixedNow.AddDate(0, 0, -29))
	recent5 := entryAt("recent-5", fixedNow.AddDate(0, 0, -5))
	require.NoError(t, s.WriteBatch(ctx, []LogEntry{old40, old31, recent29, recent5}))

	deleted, err := s.SweepExpired(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	gone, err := s.QueryByDate(ctx, old40.DatePartition(), 10)
	require.NoError(t, err)
	assert.Empty(t, gone)
	gone, err = s.QueryByDate(ctx, old31.DatePartition(), 10)
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := s.QueryByDate(ctx, recent29.DatePartition(), 10)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	kept, err = s.QueryByDate(ctx, recent5.DatePartition(), 10)
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	// повторный проход ничего не находит
	deleted, err = s.SweepExpired(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSweepExpired_IgnoresForeignKeys(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set(infra.RedisKeyLogsPrefix+"garbage", "x"))
	require.NoError(t, mr.Set("other:key", "x"))

	deleted, err := s.SweepExpired(context.Background(), 30)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.True(t, mr.Exists(infra.RedisKeyLogsPrefix+"garbage"))
	assert.True(t, mr.Exists("other:key"))
}

func TestSweepExpired_RejectsNonPositiveRetention(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.SweepExpired(context.Background(), 0)
	assert.Error(t, err)
}
