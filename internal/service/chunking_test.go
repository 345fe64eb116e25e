package service

import (
	"strings"
	"testing"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitSizer measures one rune as one unit, which makes expected chunk
// boundaries easy to reason about in tests.
func unitSizer() TextSizer {
	return &CharSizer{CharsPerToken: 1}
}

func testSource() ChunkSource {
	return ChunkSource{
		DocumentID: "doc-1",
		FileName:   "report.pdf",
		Domain:     domain.DomainTechnical,
	}
}

func chunkTexts(chunks []domain.Chunk) []string {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	return texts
}

func TestChunkConfigValidate(t *testing.T) {
	require.NoError(t, ChunkConfig{MaxSize: 1000, Overlap: 200}.Validate())
	require.NoError(t, ChunkConfig{MaxSize: 10, Overlap: 0}.Validate())

	assert.Error(t, ChunkConfig{MaxSize: 0, Overlap: 0}.Validate())
	assert.Error(t, ChunkConfig{MaxSize: 100, Overlap: -1}.Validate())
	assert.Error(t, ChunkConfig{MaxSize: 100, Overlap: 100}.Validate())
	assert.Error(t, ChunkConfig{MaxSize: 100, Overlap: 150}.Validate())
}

func TestSplitEmptyText(t *testing.T) {
	chunker, err := NewChunker(ChunkConfig{MaxSize: 100, Overlap: 10}, unitSizer())
	require.NoError(t, err)

	assert.Empty(t, chunker.Split(testSource(), ""))
	assert.Empty(t, chunker.Split(testSource(), "   \n\t  "))
}

func TestSplitOneUnitPerChunk(t *testing.T) {
	chunker, err := NewChunker(ChunkConfig{MaxSize: 1, Overlap: 0}, unitSizer())
	require.NoError(t, err)

	chunks := chunker.Split(testSource(), "A. B. C")

	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"A", "B", "C"}, chunkTexts(chunks))
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc-1", c.DocumentID)
		assert.Equal(t, "report.pdf", c.FileName)
		assert.Equal(t, domain.DomainTechnical, c.Domain)
		assert.False(t, c.CreatedAt.IsZero())
	}
}

func TestSplitSingleSmallText(t *testing.T) {
	chunker, err := NewChunker(ChunkConfig{MaxSize: 100, Overlap: 10}, unitSizer())
	require.NoError(t, err)

	chunks := chunker.Split(testSource(), "short sentence. another one")

	require.Len(t, chunks, 1)
	assert.Equal(t, "short sentence. another one", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 27, chunks[0].TokenCount)
}

func TestSplitOverlapTail(t *testing.T) {
	chunker, err := NewChunker(ChunkConfig{MaxSize: 20, Overlap: 5}, unitSizer())
	require.NoError(t, err)

	chunks := chunker.Split(testSource(), "one two three. four five six. seven eight nine")

	require.Len(t, chunks, 3)
	assert.Equal(t, "one two three", chunks[0].Text)
	assert.Equal(t, "three. four five six", chunks[1].Text)
	assert.Equal(t, "e six. seven eight nine", chunks[2].Text)

	// Every chunk after the first starts with a tail of its predecessor no
	// longer than the configured overlap.
	for i := 1; i < len(chunks); i++ {
		sep := strings.Index(chunks[i].Text, ". ")
		require.Greater(t, sep, 0)
		tail := chunks[i].Text[:sep]
		assert.LessOrEqual(t, len(tail), 5)
		assert.True(t, strings.HasSuffix(chunks[i-1].Text, tail))
	}
}

func TestSplitNoUnitLostOrDuplicated(t *testing.T) {
	chunker, err := NewChunker(ChunkConfig{MaxSize: 25, Overlap: 0}, unitSizer())
	require.NoError(t, err)

	text := "alpha beta gamma. delta epsilon zeta. eta theta iota. kappa lambda mu"
	chunks := chunker.Split(testSource(), text)

	require.NotEmpty(t, chunks)
	// With zero overlap, re-joining the chunks reconstructs the original
	// unit sequence exactly.
	assert.Equal(t, text, strings.Join(chunkTexts(chunks), ". "))
}

func TestSplitContiguousIndices(t *testing.T) {
	chunker, err := NewChunker(ChunkConfig{MaxSize: 12, Overlap: 3}, unitSizer())
	require.NoError(t, err)

	text := "aa bb. cc dd. ee ff. gg hh. ii jj. kk ll"
	chunks := chunker.Split(testSource(), text)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplitOversizedUnitNeverTruncated(t *testing.T) {
	chunker, err := NewChunker(ChunkConfig{MaxSize: 10, Overlap: 0}, unitSizer())
	require.NoError(t, err)

	long := strings.Repeat("x", 30)
	chunks := chunker.Split(testSource(), "ab. "+long+". cd")

	require.Len(t, chunks, 3)
	assert.Equal(t, "ab", chunks[0].Text)
	assert.Equal(t, long, chunks[1].Text)
	assert.Equal(t, "cd", chunks[2].Text)
	assert.Equal(t, 30, chunks[1].TokenCount)
}

func TestSplitSizeBounds(t *testing.T) {
	// Overlap plus any single unit fits in MaxSize here, so every chunk
	// must respect the bound.
	chunker, err := NewChunker(ChunkConfig{MaxSize: 40, Overlap: 8}, unitSizer())
	require.NoError(t, err)

	text := "the first clause is here. the second clause follows. a third clause arrives. the fourth clause closes"
	chunks := chunker.Split(testSource(), text)
	sizer := unitSizer()

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, sizer.Size(c.Text), 40, "chunk %d too large: %q", i, c.Text)
	}
}

func TestSplitDeterministic(t *testing.T) {
	chunker, err := NewChunker(ChunkConfig{MaxSize: 18, Overlap: 4}, unitSizer())
	require.NoError(t, err)

	text := "red green blue. cyan magenta yellow. black white gray. one more line"
	first := chunker.Split(testSource(), text)
	second := chunker.Split(testSource(), text)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Index, second[i].Index)
		assert.Equal(t, first[i].TokenCount, second[i].TokenCount)
	}
}

func TestSplitWithOverlapShorterChunk(t *testing.T) {
	// A chunk shorter than the configured overlap becomes the whole tail.
	chunker, err := NewChunker(ChunkConfig{MaxSize: 10, Overlap: 8}, unitSizer())
	require.NoError(t, err)

	chunks := chunker.Split(testSource(), "abc. defghijklm")

	require.Len(t, chunks, 2)
	assert.Equal(t, "abc", chunks[0].Text)
	assert.Equal(t, "abc. defghijklm", chunks[1].Text)
}

func TestCharSizer(t *testing.T) {
	s := NewCharSizer(4)
	assert.Equal(t, 0, s.Size(""))
	assert.Equal(t, 1, s.Size("abc"))
	assert.Equal(t, 1, s.Size("abcd"))
	assert.Equal(t, 2, s.Size("abcde"))

	assert.Equal(t, "", s.Tail("abcdef", 0))
	assert.Equal(t, "abcdef", s.Tail("abcdef", 2))
	assert.Equal(t, "cdef", s.Tail("abcdef", 1))

	// Non-positive ratio falls back to the default.
	assert.Equal(t, 4, NewCharSizer(0).CharsPerToken)
	assert.Equal(t, 4, NewCharSizer(-2).CharsPerToken)
}
