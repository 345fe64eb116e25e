package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListWithCursor(ctx context.Context, filter DocumentListFilter, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error) {
	args := m.Called(ctx, filter, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentPageResult), args.Error(1)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockDocumentRepository) MarkProcessed(ctx context.Context, id string, chunkCount int, processedAt time.Time) error {
	args := m.Called(ctx, id, chunkCount, processedAt)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockIngestJobRepo struct {
	mock.Mock
}

func (m *MockIngestJobRepo) Create(ctx context.Context, job *domain.IngestJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Error(0)
}

func (m *MockBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) Extract(ctx context.Context, r io.ReaderAt, size int64, fileType domain.FileType) (string, error) {
	args := m.Called(ctx, r, size, fileType)
	return args.String(0), args.Error(1)
}

// fakeTxRunner invokes the transaction body with the injected repositories
// so service tests can assert what runs inside the transaction.
type fakeTxRunner struct {
	docs *MockDocumentRepository
	jobs *MockIngestJobRepo
	err  error
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(TxRepositories) error) error {
	if r.err != nil {
		return r.err
	}
	return fn(&fakeTxRepos{docs: r.docs, jobs: r.jobs})
}

type fakeTxRepos struct {
	docs *MockDocumentRepository
	jobs *MockIngestJobRepo
}

func (r *fakeTxRepos) Documents() DocumentRepositoryInterface { return r.docs }
func (r *fakeTxRepos) IngestJobs() IngestJobRepositoryInterface {
	return r.jobs
}

type fixedUUIDGen struct {
	ids []string
	pos int
}

func (g *fixedUUIDGen) NewString() string {
	id := g.ids[g.pos%len(g.ids)]
	g.pos++
	return id
}

type documentFixture struct {
	docs      *MockDocumentRepository
	jobs      *MockIngestJobRepo
	txRunner  *fakeTxRunner
	blobs     *MockBlobStore
	extractor *MockTextExtractor
	embedder  *MockEmbedder
	index     *MockVectorIndex
	svc       *DocumentService
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()

	f := &documentFixture{
		docs:      new(MockDocumentRepository),
		jobs:      new(MockIngestJobRepo),
		blobs:     new(MockBlobStore),
		extractor: new(MockTextExtractor),
		embedder:  new(MockEmbedder),
		index:     new(MockVectorIndex),
	}
	f.txRunner = &fakeTxRunner{docs: f.docs, jobs: f.jobs}

	chunker, err := NewChunker(DefaultChunkConfig(), NewCharSizer(4))
	require.NoError(t, err)

	retrieval := newTestRetrieval(f.embedder, f.index)
	f.svc = NewDocumentService(f.docs, f.jobs, f.txRunner, f.blobs, f.extractor, chunker, retrieval, 1024).
		WithUUIDGen(&fixedUUIDGen{ids: []string{"doc-1", "job-1"}})
	return f
}

func TestUpload(t *testing.T) {
	f := newDocumentFixture(t)

	f.blobs.On("Put", mock.Anything, "uploads/doc-1/report.pdf", mock.Anything, int64(11), "application/pdf").
		Return(nil)
	f.docs.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.ID == "doc-1" &&
			d.FileType == domain.FileTypePDF &&
			d.Domain == domain.DomainLegal &&
			d.Status == domain.UploadStatusPending
	})).Return(nil)
	f.jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.IngestJob) bool {
		return j.DocumentID == "doc-1" && j.Status == domain.IngestJobStatusPending
	})).Return(nil)

	doc, err := f.svc.Upload(context.Background(), UploadInput{
		FileName:    "report.pdf",
		Size:        11,
		ContentType: "application/pdf",
		Domain:      "legal",
		Content:     strings.NewReader("pdf content"),
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "uploads/doc-1/report.pdf", doc.StorageKey)
	f.docs.AssertExpectations(t)
	f.jobs.AssertExpectations(t)
}

func TestUpload_FileTooLarge(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "big.pdf",
		Size:     2048,
		Content:  strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
	f.blobs.AssertNotCalled(t, "Put")
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "archive.zip",
		Size:     10,
		Content:  strings.NewReader("zip"),
	})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeUnsupportedFormat, domainErr.Code)
}

func TestUpload_InvalidDomain(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "notes.txt",
		Size:     10,
		Domain:   "astrology",
		Content:  strings.NewReader("text"),
	})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestUpload_TxFailureCleansUpBlob(t *testing.T) {
	f := newDocumentFixture(t)
	f.txRunner.err = errors.New("insert failed")

	f.blobs.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	f.blobs.On("Delete", mock.Anything, "uploads/doc-1/report.pdf").Return(nil)

	_, err := f.svc.Upload(context.Background(), UploadInput{
		FileName: "report.pdf",
		Size:     11,
		Content:  strings.NewReader("pdf content"),
	})
	require.Error(t, err)
	f.blobs.AssertCalled(t, "Delete", mock.Anything, "uploads/doc-1/report.pdf")
}

func TestList_BySession(t *testing.T) {
	f := newDocumentFixture(t)

	page := &DocumentPageResult{
		Items:      []*domain.Document{{ID: "doc-1"}},
		NextCursor: "next",
		HasMore:    true,
	}
	f.docs.On("ListWithCursor", mock.Anything, DocumentListFilter{SessionID: "sess-1"}, (*pagination.Cursor)(nil), 10).
		Return(page, nil)

	out, err := f.svc.List(context.Background(), ListDocumentsInput{SessionID: "sess-1", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "next", out.Cursor)
	assert.True(t, out.HasMore)
}

func TestList_DomainAndStatusFilter(t *testing.T) {
	f := newDocumentFixture(t)

	want := DocumentListFilter{Domain: domain.DomainLegal, Status: domain.UploadStatusCompleted}
	f.docs.On("ListWithCursor", mock.Anything, want, (*pagination.Cursor)(nil), 0).
		Return(&DocumentPageResult{}, nil)

	_, err := f.svc.List(context.Background(), ListDocumentsInput{Domain: "Legal", Status: "COMPLETED"})
	require.NoError(t, err)
	f.docs.AssertExpectations(t)
}

func TestList_InvalidDomain(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.List(context.Background(), ListDocumentsInput{Domain: "astrology"})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestList_InvalidStatus(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.List(context.Background(), ListDocumentsInput{Status: "archived"})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestList_InvalidCursor(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.List(context.Background(), ListDocumentsInput{Cursor: "not-base64!!!"})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestDelete(t *testing.T) {
	f := newDocumentFixture(t)

	f.index.On("DeleteByDocument", mock.Anything, "doc-1").Return(5, nil)
	f.docs.On("GetByID", mock.Anything, "doc-1").
		Return(&domain.Document{ID: "doc-1", StorageKey: "uploads/doc-1/report.pdf"}, nil)
	f.blobs.On("Delete", mock.Anything, "uploads/doc-1/report.pdf").Return(nil)
	f.docs.On("Delete", mock.Anything, "doc-1").Return(nil)

	out, err := f.svc.Delete(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 5, out.RemovedChunks)
}

func TestDelete_UnknownDocumentIsIdempotent(t *testing.T) {
	f := newDocumentFixture(t)

	f.index.On("DeleteByDocument", mock.Anything, "ghost").Return(0, nil)
	f.docs.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrDocumentNotFound)

	out, err := f.svc.Delete(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, out.RemovedChunks)
	f.blobs.AssertNotCalled(t, "Delete")
	f.docs.AssertNotCalled(t, "Delete")
}

func TestDelete_BlobFailureIsNotFatal(t *testing.T) {
	f := newDocumentFixture(t)

	f.index.On("DeleteByDocument", mock.Anything, "doc-1").Return(2, nil)
	f.docs.On("GetByID", mock.Anything, "doc-1").
		Return(&domain.Document{ID: "doc-1", StorageKey: "uploads/doc-1/report.pdf"}, nil)
	f.blobs.On("Delete", mock.Anything, mock.Anything).Return(errors.New("s3 down"))
	f.docs.On("Delete", mock.Anything, "doc-1").Return(nil)

	out, err := f.svc.Delete(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, out.RemovedChunks)
}

func TestReprocess(t *testing.T) {
	f := newDocumentFixture(t)

	f.docs.On("GetByID", mock.Anything, "doc-1").
		Return(&domain.Document{ID: "doc-1", Status: domain.UploadStatusFailed, Error: "boom"}, nil)
	f.docs.On("UpdateStatus", mock.Anything, "doc-1", domain.UploadStatusPending, "").Return(nil)
	f.jobs.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.IngestJob) bool {
		return j.DocumentID == "doc-1"
	})).Return(nil)

	doc, err := f.svc.Reprocess(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusPending, doc.Status)
	assert.Empty(t, doc.Error)
}

func TestProcess(t *testing.T) {
	f := newDocumentFixture(t)

	doc := &domain.Document{
		ID:         "doc-1",
		FileName:   "notes.txt",
		FileType:   domain.FileTypeText,
		Domain:     domain.DomainGeneral,
		StorageKey: "uploads/doc-1/notes.txt",
		Status:     domain.UploadStatusPending,
	}

	f.docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	f.docs.On("UpdateStatus", mock.Anything, "doc-1", domain.UploadStatusProcessing, "").Return(nil)
	f.blobs.On("Get", mock.Anything, "uploads/doc-1/notes.txt").
		Return(io.NopCloser(bytes.NewReader([]byte("raw bytes"))), nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything, int64(9), domain.FileTypeText).
		Return("One sentence. Another sentence.", nil)
	f.embedder.On("EmbedTexts", mock.Anything, mock.Anything).
		Return([][]float32{{0.1}}, nil)
	f.index.On("ReplaceForDocument", mock.Anything, "doc-1", mock.Anything, mock.Anything).
		Return(nil)
	f.docs.On("MarkProcessed", mock.Anything, "doc-1", 1, mock.Anything).Return(nil)

	err := f.svc.Process(context.Background(), "doc-1")
	require.NoError(t, err)
	f.docs.AssertExpectations(t)
}

func TestProcess_ExtractionFailureMarksFailed(t *testing.T) {
	f := newDocumentFixture(t)

	doc := &domain.Document{
		ID:         "doc-1",
		FileName:   "broken.pdf",
		FileType:   domain.FileTypePDF,
		StorageKey: "uploads/doc-1/broken.pdf",
	}

	f.docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	f.docs.On("UpdateStatus", mock.Anything, "doc-1", domain.UploadStatusProcessing, "").Return(nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).
		Return(io.NopCloser(bytes.NewReader([]byte("junk"))), nil)
	extractErr := domain.NewExtractionError(errors.New("bad xref table"))
	f.extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", extractErr)
	f.docs.On("UpdateStatus", mock.Anything, "doc-1", domain.UploadStatusFailed, mock.Anything).Return(nil)

	err := f.svc.Process(context.Background(), "doc-1")
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeExtraction, domainErr.Code)
	f.docs.AssertCalled(t, "UpdateStatus", mock.Anything, "doc-1", domain.UploadStatusFailed, mock.Anything)
	f.docs.AssertNotCalled(t, "MarkProcessed")
}

func TestProcess_EmptyTextCompletesWithZeroChunks(t *testing.T) {
	f := newDocumentFixture(t)

	doc := &domain.Document{
		ID:         "doc-1",
		FileName:   "empty.txt",
		FileType:   domain.FileTypeText,
		StorageKey: "uploads/doc-1/empty.txt",
	}

	f.docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	f.docs.On("UpdateStatus", mock.Anything, "doc-1", domain.UploadStatusProcessing, "").Return(nil)
	f.blobs.On("Get", mock.Anything, mock.Anything).
		Return(io.NopCloser(bytes.NewReader(nil)), nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("   ", nil)
	f.index.On("ReplaceForDocument", mock.Anything, "doc-1", []domain.Chunk(nil), [][]float32(nil)).
		Return(nil)
	f.docs.On("MarkProcessed", mock.Anything, "doc-1", 0, mock.Anything).Return(nil)

	err := f.svc.Process(context.Background(), "doc-1")
	require.NoError(t, err)
	f.embedder.AssertNotCalled(t, "EmbedTexts")
}
