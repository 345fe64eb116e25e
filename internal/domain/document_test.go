package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeFromName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     FileType
		wantErr  bool
	}{
		{"pdf", "report.pdf", FileTypePDF, false},
		{"pdf uppercase", "REPORT.PDF", FileTypePDF, false},
		{"txt", "notes.txt", FileTypeText, false},
		{"markdown", "readme.md", FileTypeText, false},
		{"docx", "contract.docx", FileTypeDocx, false},
		{"legacy doc", "contract.doc", FileTypeDocx, false},
		{"xlsx", "ledger.xlsx", FileTypeXlsx, false},
		{"legacy xls", "ledger.xls", FileTypeXlsx, false},
		{"unsupported", "archive.zip", "", true},
		{"no extension", "Makefile", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FileTypeFromName(tt.fileName)
			if tt.wantErr {
				require.Error(t, err)
				var domainErr *DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, ErrCodeUnsupportedFormat, domainErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain("legal")
	require.NoError(t, err)
	assert.Equal(t, DomainLegal, d)

	d, err = ParseDomain("  Financial ")
	require.NoError(t, err)
	assert.Equal(t, DomainFinancial, d)

	d, err = ParseDomain("")
	require.NoError(t, err)
	assert.Equal(t, DomainGeneral, d)

	_, err = ParseDomain("astrology")
	require.Error(t, err)
}

func TestValidateDocument(t *testing.T) {
	valid := &Document{
		ID:         "doc-1",
		FileName:   "report.pdf",
		FileType:   FileTypePDF,
		FileSize:   1024,
		Domain:     DomainGeneral,
		Status:     UploadStatusPending,
		UploadedAt: time.Now().UTC(),
	}
	require.NoError(t, ValidateDocument(valid))

	assert.Error(t, ValidateDocument(nil))

	missingID := *valid
	missingID.ID = ""
	assert.Error(t, ValidateDocument(&missingID))

	badDomain := *valid
	badDomain.Domain = "astrology"
	assert.Error(t, ValidateDocument(&badDomain))

	badStatus := *valid
	badStatus.Status = "stuck"
	assert.Error(t, ValidateDocument(&badStatus))
}

func TestChunkVectorID(t *testing.T) {
	c := Chunk{DocumentID: "abc", Index: 3}
	assert.Equal(t, "doc_abc_chunk_3", c.VectorID())
	// Same inputs always compose the same id.
	assert.Equal(t, c.VectorID(), ChunkVectorID("abc", 3))
}

func TestRetrievalFilter(t *testing.T) {
	assert.True(t, RetrievalFilter{}.IsEmpty())
	assert.True(t, RetrievalFilter{Domain: DomainGeneral}.IsEmpty())
	assert.False(t, RetrievalFilter{Domain: DomainLegal}.IsEmpty())
	assert.False(t, RetrievalFilter{DocumentIDs: []string{"a"}}.IsEmpty())
	assert.False(t, RetrievalFilter{Domain: DomainGeneral}.HasDomain())
}

func TestValidateChatMessage(t *testing.T) {
	valid := &ChatMessage{
		ID:        "msg-1",
		SessionID: "sess-1",
		Role:      MessageRoleUser,
		Content:   "hello",
	}
	require.NoError(t, ValidateChatMessage(valid))

	badRole := *valid
	badRole.Role = "narrator"
	assert.Error(t, ValidateChatMessage(&badRole))

	empty := *valid
	empty.Content = ""
	assert.Error(t, ValidateChatMessage(&empty))
}
