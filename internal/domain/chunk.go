package domain

import (
	"fmt"
	"time"
)

// Chunk is one token-bounded segment of an extracted document.
// Chunks of a document carry contiguous indices starting at 0 and are
// immutable once created.
type Chunk struct {
	Text       string
	Index      int
	DocumentID string
	Domain     DocumentDomain
	FileName   string
	TokenCount int
	CreatedAt  time.Time
}

// VectorID derives the stable vector store identifier for this chunk.
// It is a pure function of (document id, chunk index) so reprocessing a
// document overwrites the same ids.
func (c Chunk) VectorID() string {
	return ChunkVectorID(c.DocumentID, c.Index)
}

// ChunkVectorID composes the vector id for a (document, index) pair.
func ChunkVectorID(documentID string, index int) string {
	return fmt.Sprintf("doc_%s_chunk_%d", documentID, index)
}
