package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/linc-gateway/internal/domain"
)

// Тесты ходят в настоящий Postgres: LINC_TEST_DATABASE_URL=postgres://... go test ./internal/repository/...
func newTestRepo(t *testing.T) *CorrelationRepo {
	t.Helper()
	url := os.Getenv("LINC_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LINC_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewCorrelationRepo(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func newRecord(correlationID, bundleID string, at time.Time) domain.CorrelationRecord {
	return domain.CorrelationRecord{
		CorrelationID: correlationID,
		MessageType:   "claim-request",
		TargetAgent:   "claimlinc",
		BundleID:      bundleID,
		ProcessedAt:   at.UnixMilli(),
		Status:        domain.StatusProcessed,
	}
}

func TestCorrelationRepo_SaveAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := newRecord(uuid.NewString(), "B-"+uuid.NewString(), time.Now())
	require.NoError(t, repo.SaveCorrelation(ctx, rec))

	got, err := repo.ListByCorrelation(ctx, rec.CorrelationID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])

	// повтор пары не меняет исходную запись
	dup := rec
	dup.TargetAgent = "recordlinc"
	assert.ErrorIs(t, repo.SaveCorrelation(ctx, dup), domain.ErrCorrelationExists)
	got, err = repo.ListByCorrelation(ctx, rec.CorrelationID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "claimlinc", got[0].TargetAgent)

	list, err := repo.ListByBundle(ctx, rec.BundleID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCorrelationRepo_ReusedIDForAnotherBundle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := uuid.NewString()
	now := time.Now()
	b1 := newRecord(id, "B1-"+uuid.NewString(), now.Add(-time.Second))
	b2 := newRecord(id, "B2-"+uuid.NewString(), now)
	require.NoError(t, repo.SaveCorrelation(ctx, b1))
	require.NoError(t, repo.SaveCorrelation(ctx, b2))

	byID, err := repo.ListByCorrelation(ctx, id)
	require.NoError(t, err)
	require.Len(t, byID, 2)
	assert.Equal(t, b2.BundleID, byID[0].BundleID, "newest first")

	byBundle, err := repo.ListByBundle(ctx, b2.BundleID)
	require.NoError(t, err)
	require.Len(t, byBundle, 1)
	assert.Equal(t, b2, byBundle[0])
}

func TestCorrelationRepo_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.ListByCorrelation(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrCorrelationNotFound)
}
