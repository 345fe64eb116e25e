package service

import (
	"strings"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
)

const sentenceSeparator = ". "

// ChunkConfig controls document chunking. Sizes are measured in the units of
// the configured TextSizer (approximate tokens).
type ChunkConfig struct {
	MaxSize int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxSize: 1000,
		Overlap: 200,
	}
}

// Validate rejects configurations the chunker cannot honor. Chunking itself
// has no failure mode, so this is the only place a bad setup surfaces.
func (c ChunkConfig) Validate() error {
	if c.MaxSize <= 0 {
		return domain.NewDomainError(domain.ErrCodeValidation, "chunk max size must be positive")
	}
	if c.Overlap < 0 {
		return domain.NewDomainError(domain.ErrCodeValidation, "chunk overlap cannot be negative")
	}
	if c.Overlap >= c.MaxSize {
		return domain.ErrInvalidChunkConfig
	}
	return nil
}

// Chunker splits extracted text into overlapping, size-bounded chunks,
// preferring sentence boundaries as flush points. The same text and
// configuration always yield the identical chunk sequence.
type Chunker struct {
	cfg   ChunkConfig
	sizer TextSizer
}

// NewChunker creates a Chunker with the given configuration and size model.
func NewChunker(cfg ChunkConfig, sizer TextSizer) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sizer == nil {
		sizer = NewCharSizer(0)
	}
	return &Chunker{cfg: cfg, sizer: sizer}, nil
}

// ChunkSource identifies the document a text came from; its fields are
// attached to every emitted chunk.
type ChunkSource struct {
	DocumentID string
	FileName   string
	Domain     domain.DocumentDomain
}

// Split chunks one document's text. Empty or whitespace-only text yields no
// chunks and no error. A single sentence unit larger than MaxSize is never
// truncated; it is emitted as an oversized chunk once accumulated.
func (c *Chunker) Split(src ChunkSource, text string) []domain.Chunk {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	now := time.Now().UTC()
	units := strings.Split(clean, sentenceSeparator)

	var chunks []domain.Chunk
	var acc string

	for _, unit := range units {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}

		candidate := unit
		if acc != "" {
			candidate = acc + sentenceSeparator + unit
		}

		if c.sizer.Size(candidate) > c.cfg.MaxSize && acc != "" {
			emitted := c.emit(src, acc, len(chunks), now)
			chunks = append(chunks, emitted)

			// Seed the next accumulator with the tail of the chunk just
			// emitted so neighboring chunks share context.
			tail := ""
			if c.cfg.Overlap > 0 {
				tail = c.sizer.Tail(emitted.Text, c.cfg.Overlap)
			}
			if tail != "" {
				acc = tail + sentenceSeparator + unit
			} else {
				acc = unit
			}
		} else {
			acc = candidate
		}
	}

	if strings.TrimSpace(acc) != "" {
		chunks = append(chunks, c.emit(src, acc, len(chunks), now))
	}

	return chunks
}

func (c *Chunker) emit(src ChunkSource, text string, index int, now time.Time) domain.Chunk {
	trimmed := strings.TrimSpace(text)
	return domain.Chunk{
		Text:       trimmed,
		Index:      index,
		DocumentID: src.DocumentID,
		Domain:     src.Domain,
		FileName:   src.FileName,
		TokenCount: c.sizer.Size(trimmed),
		CreatedAt:  now,
	}
}
