package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
)

// Embedder turns a batch of texts into embedding vectors, one per input,
// in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// IndexHit is a nearest-neighbor match with its raw cosine distance.
type IndexHit struct {
	Chunk    domain.Chunk
	Distance float64
}

// VectorIndex stores chunk embeddings and answers nearest-neighbor queries.
type VectorIndex interface {
	// ReplaceForDocument atomically swaps a document's indexed chunks.
	ReplaceForDocument(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings [][]float32) error
	// Query returns the topK nearest chunks ordered by ascending distance.
	Query(ctx context.Context, embedding []float32, topK int, filter domain.RetrievalFilter) ([]IndexHit, error)
	// DeleteByDocument removes a document's chunks, returning how many existed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
}

const defaultRetryBackoff = 500 * time.Millisecond

// RetrievalService orchestrates embedding and vector search. Transient
// embedding and index failures are retried once before surfacing.
type RetrievalService struct {
	embedder Embedder
	index    VectorIndex
	topK     int
	backoff  time.Duration
}

// NewRetrievalService creates a RetrievalService. topK is the default result
// count when a search request does not specify one.
func NewRetrievalService(embedder Embedder, index VectorIndex, topK int) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	return &RetrievalService{
		embedder: embedder,
		index:    index,
		topK:     topK,
		backoff:  defaultRetryBackoff,
	}
}

// IndexDocument embeds the chunks and replaces the document's index entries.
// Returns the number of chunks indexed.
func (s *RetrievalService) IndexDocument(ctx context.Context, documentID string, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		// An empty document still clears stale entries from a prior run.
		if err := s.retryOnce(ctx, func() error {
			return s.index.ReplaceForDocument(ctx, documentID, nil, nil)
		}); err != nil {
			return 0, domain.NewVectorIndexError(err)
		}
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var embeddings [][]float32
	err := s.retryOnce(ctx, func() error {
		var embedErr error
		embeddings, embedErr = s.embedder.EmbedTexts(ctx, texts)
		return embedErr
	})
	if err != nil {
		return 0, domain.NewEmbeddingError(err)
	}

	if err := s.retryOnce(ctx, func() error {
		return s.index.ReplaceForDocument(ctx, documentID, chunks, embeddings)
	}); err != nil {
		return 0, domain.NewVectorIndexError(err)
	}

	return len(chunks), nil
}

// Search embeds the query and returns the closest chunks as scored results.
// Score is 1 minus cosine distance, clamped to [0, 1]. Results are ordered by
// score descending with ties broken by chunk index then document ID, so the
// same query against the same index always returns the same sequence.
func (s *RetrievalService) Search(ctx context.Context, query string, topK int, filter domain.RetrievalFilter) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = s.topK
	}

	var vectors [][]float32
	err := s.retryOnce(ctx, func() error {
		var embedErr error
		vectors, embedErr = s.embedder.EmbedTexts(ctx, []string{query})
		return embedErr
	})
	if err != nil {
		return nil, domain.NewEmbeddingError(err)
	}

	var hits []IndexHit
	err = s.retryOnce(ctx, func() error {
		var queryErr error
		hits, queryErr = s.index.Query(ctx, vectors[0], topK, filter)
		return queryErr
	})
	if err != nil {
		return nil, domain.NewVectorIndexError(err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.SearchResult{
			ChunkText:    h.Chunk.Text,
			Score:        clampScore(1 - h.Distance),
			DocumentName: h.Chunk.FileName,
			ChunkIndex:   h.Chunk.Index,
			Metadata: domain.ChunkMetadata{
				DocumentID: h.Chunk.DocumentID,
				ChunkIndex: h.Chunk.Index,
				Domain:     h.Chunk.Domain,
				FileName:   h.Chunk.FileName,
				TokenCount: h.Chunk.TokenCount,
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].ChunkIndex != results[j].ChunkIndex {
			return results[i].ChunkIndex < results[j].ChunkIndex
		}
		return results[i].Metadata.DocumentID < results[j].Metadata.DocumentID
	})

	return results, nil
}

// DeleteDocument removes a document's chunks from the index and reports how
// many were removed. Deleting an unknown document returns zero, not an error.
func (s *RetrievalService) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.retryOnce(ctx, func() error {
		var delErr error
		count, delErr = s.index.DeleteByDocument(ctx, documentID)
		return delErr
	})
	if err != nil {
		return 0, domain.NewVectorIndexError(err)
	}
	return count, nil
}

// ChunkCount reports how many chunks a document currently has in the index.
func (s *RetrievalService) ChunkCount(ctx context.Context, documentID string) (int, error) {
	count, err := s.index.CountByDocument(ctx, documentID)
	if err != nil {
		return 0, domain.NewVectorIndexError(err)
	}
	return count, nil
}

// retryOnce runs fn and, on failure, retries a single time after a backoff.
func (s *RetrievalService) retryOnce(ctx context.Context, fn func() error) error {
	if err := fn(); err == nil {
		return nil
	}
	if s.backoff > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
	return fn()
}

func clampScore(v float64) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return float32(v)
}
