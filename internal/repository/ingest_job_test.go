//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIngestJob(ctx context.Context, t *testing.T, repo *IngestJobRepository, documentID string, createdAt time.Time) *domain.IngestJob {
	t.Helper()
	job := &domain.IngestJob{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Status:     domain.IngestJobStatusPending,
		CreatedAt:  createdAt.UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, job))
	return job
}

func TestIngestJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())
	job := seedIngestJob(ctx, t, jobRepo, d.ID, time.Now())

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, retrieved.DocumentID)
	assert.Equal(t, domain.IngestJobStatusPending, retrieved.Status)
	assert.Equal(t, int32(0), retrieved.Retries)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestIngestJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewIngestJobRepository(pool)

	_, err := jobRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrIngestJobNotFound)
}

func TestIngestJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())
	base := time.Now().UTC()

	oldest := seedIngestJob(ctx, t, jobRepo, d.ID, base)
	middle := seedIngestJob(ctx, t, jobRepo, d.ID, base.Add(time.Second))
	seedIngestJob(ctx, t, jobRepo, d.ID, base.Add(2*time.Second))

	claimed, err := jobRepo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	// Oldest pending jobs are claimed first and flip to processing.
	ids := []string{claimed[0].ID, claimed[1].ID}
	assert.Contains(t, ids, oldest.ID)
	assert.Contains(t, ids, middle.ID)
	for _, job := range claimed {
		assert.Equal(t, domain.IngestJobStatusProcessing, job.Status)
	}

	// Claimed jobs are not claimable again.
	remaining, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestIngestJobRepository_ClaimPending_Empty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewIngestJobRepository(pool)

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestIngestJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())
	job := seedIngestJob(ctx, t, jobRepo, d.ID, time.Now())

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusCompleted, retrieved.Status)
	assert.NotNil(t, retrieved.ProcessedAt)
}

func TestIngestJobRepository_UpdateStatus_Failed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())
	job := seedIngestJob(ctx, t, jobRepo, d.ID, time.Now())

	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, "max retries exceeded"))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusFailed, retrieved.Status)
	assert.Equal(t, "max retries exceeded", retrieved.Error)
	assert.NotNil(t, retrieved.ProcessedAt)
}

func TestIngestJobRepository_UpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewIngestJobRepository(pool)

	err := jobRepo.UpdateStatus(ctx, uuid.NewString(), domain.IngestJobStatusCompleted, "")
	assert.ErrorIs(t, err, ErrIngestJobNotFound)
}

func TestIngestJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())
	job := seedIngestJob(ctx, t, jobRepo, d.ID, time.Now())

	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), retrieved.Retries)
}

func TestIngestJobRepository_DeleteDocumentCascades(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	jobRepo := NewIngestJobRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())
	job := seedIngestJob(ctx, t, jobRepo, d.ID, time.Now())

	require.NoError(t, docRepo.Delete(ctx, d.ID))

	_, err := jobRepo.GetByID(ctx, job.ID)
	assert.ErrorIs(t, err, ErrIngestJobNotFound)
}
