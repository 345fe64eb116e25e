//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitEmbedding returns a 1536-dim unit vector along one axis, so cosine
// distances between test vectors are exactly 0 or 1.
func unitEmbedding(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis] = 1
	return v
}

func seedChunks(docID string, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			Text:       text,
			Index:      i,
			DocumentID: docID,
			Domain:     domain.DomainGeneral,
			FileName:   "report.pdf",
			TokenCount: 5,
			CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
		})
	}
	return chunks
}

func TestChunkRepository_ReplaceAndQuery(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())

	chunks := seedChunks(d.ID, "close match", "far match")
	embeddings := [][]float32{unitEmbedding(0), unitEmbedding(1)}
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, d.ID, chunks, embeddings))

	hits, err := chunkRepo.Query(ctx, unitEmbedding(0), 10, domain.RetrievalFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "close match", hits[0].Chunk.Text)
	assert.InDelta(t, 0.0, hits[0].Distance, 0.001)
	assert.Equal(t, "far match", hits[1].Chunk.Text)
	assert.InDelta(t, 1.0, hits[1].Distance, 0.001)
	assert.Equal(t, d.ID, hits[0].Chunk.DocumentID)
	assert.Equal(t, "report.pdf", hits[0].Chunk.FileName)
}

func TestChunkRepository_ReplaceSwapsPriorChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())

	first := seedChunks(d.ID, "old one", "old two", "old three")
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, d.ID, first,
		[][]float32{unitEmbedding(0), unitEmbedding(1), unitEmbedding(2)}))

	second := seedChunks(d.ID, "new one")
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, d.ID, second,
		[][]float32{unitEmbedding(3)}))

	count, err := chunkRepo.CountByDocument(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hits, err := chunkRepo.Query(ctx, unitEmbedding(3), 10, domain.RetrievalFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new one", hits[0].Chunk.Text)
}

func TestChunkRepository_ReplaceCountMismatch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	chunkRepo := NewChunkRepository(pool)

	err := chunkRepo.ReplaceForDocument(ctx, "doc", seedChunks("doc", "one"), nil)
	assert.Error(t, err)
}

func TestChunkRepository_QueryFilters(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	legalDoc := seedDocument(ctx, t, docRepo, time.Now())
	generalDoc := seedDocument(ctx, t, docRepo, time.Now())

	legalChunks := seedChunks(legalDoc.ID, "legal text")
	legalChunks[0].Domain = domain.DomainLegal
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, legalDoc.ID, legalChunks,
		[][]float32{unitEmbedding(0)}))

	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, generalDoc.ID,
		seedChunks(generalDoc.ID, "general text"),
		[][]float32{unitEmbedding(0)}))

	hits, err := chunkRepo.Query(ctx, unitEmbedding(0), 10, domain.RetrievalFilter{
		Domain: domain.DomainLegal,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "legal text", hits[0].Chunk.Text)

	hits, err = chunkRepo.Query(ctx, unitEmbedding(0), 10, domain.RetrievalFilter{
		DocumentIDs: []string{generalDoc.ID},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, generalDoc.ID, hits[0].Chunk.DocumentID)

	hits, err = chunkRepo.Query(ctx, unitEmbedding(0), 10, domain.RetrievalFilter{
		Domain:      domain.DomainLegal,
		DocumentIDs: []string{generalDoc.ID},
	})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChunkRepository_QueryLimit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())

	chunks := seedChunks(d.ID, "a", "b", "c", "d")
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, d.ID, chunks,
		[][]float32{unitEmbedding(0), unitEmbedding(1), unitEmbedding(2), unitEmbedding(3)}))

	hits, err := chunkRepo.Query(ctx, unitEmbedding(0), 2, domain.RetrievalFilter{})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Chunk.Text)
}

func TestChunkRepository_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	d := seedDocument(ctx, t, docRepo, time.Now())

	chunks := seedChunks(d.ID, "one", "two", "three")
	require.NoError(t, chunkRepo.ReplaceForDocument(ctx, d.ID, chunks,
		[][]float32{unitEmbedding(0), unitEmbedding(1), unitEmbedding(2)}))

	removed, err := chunkRepo.DeleteByDocument(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	// Repeating the delete removes nothing and does not error.
	removed, err = chunkRepo.DeleteByDocument(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	count, err := chunkRepo.CountByDocument(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
