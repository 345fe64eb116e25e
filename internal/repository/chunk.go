package repository

import (
	"context"
	"fmt"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository persists chunk embeddings in pgvector and answers
// nearest-neighbor queries with cosine distance.
type ChunkRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool, pool: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceForDocument swaps a document's chunks for a new set in one
// transaction, so readers never observe a half-indexed document.
func (r *ChunkRepository) ReplaceForDocument(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	if r.pool == nil {
		return r.replace(ctx, r.db, documentID, chunks, embeddings)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.replace(ctx, tx, documentID, chunks, embeddings); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ChunkRepository) replace(ctx context.Context, db dbtx, documentID string, chunks []domain.Chunk, embeddings [][]float32) error {
	if _, err := db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		return err
	}

	for i, c := range chunks {
		_, err := db.Exec(ctx,
			`INSERT INTO document_chunks
				(document_id, chunk_index, domain, file_name, content, token_count, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			documentID,
			c.Index,
			c.Domain,
			c.FileName,
			c.Text,
			c.TokenCount,
			pgvector.NewVector(embeddings[i]),
			c.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Query returns the topK chunks nearest to the embedding. Ordering is by
// ascending cosine distance with document ID and chunk index as tiebreakers,
// so equal-distance results come back in a stable order.
func (r *ChunkRepository) Query(ctx context.Context, embedding []float32, topK int, filter domain.RetrievalFilter) ([]service.IndexHit, error) {
	if topK <= 0 {
		topK = 5
	}

	vec := pgvector.NewVector(embedding)

	query := `SELECT document_id, chunk_index, domain, file_name, content, token_count, created_at,
	       embedding <=> $1 AS distance
	FROM document_chunks`
	args := []any{vec}

	where := ""
	if filter.HasDomain() {
		args = append(args, filter.Domain)
		where = fmt.Sprintf(" WHERE domain = $%d", len(args))
	}
	if len(filter.DocumentIDs) > 0 {
		args = append(args, filter.DocumentIDs)
		if where == "" {
			where = fmt.Sprintf(" WHERE document_id = ANY($%d)", len(args))
		} else {
			where += fmt.Sprintf(" AND document_id = ANY($%d)", len(args))
		}
	}

	args = append(args, topK)
	query += where + fmt.Sprintf(`
	ORDER BY embedding <=> $1 ASC, chunk_index ASC, document_id ASC
	LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []service.IndexHit
	for rows.Next() {
		var h service.IndexHit
		if err := rows.Scan(&h.Chunk.DocumentID, &h.Chunk.Index, &h.Chunk.Domain, &h.Chunk.FileName,
			&h.Chunk.Text, &h.Chunk.TokenCount, &h.Chunk.CreatedAt, &h.Distance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// DeleteByDocument removes all chunks of a document and reports how many
// rows went away. Unknown documents delete zero rows without error.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`,
		documentID,
	)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&count)
	return count, err
}
