package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/pagination"
	"github.com/clearsight-ai/docchat/internal/telemetry"
	"github.com/google/uuid"
)

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListWithCursor(ctx context.Context, filter DocumentListFilter, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, errMsg string) error
	MarkProcessed(ctx context.Context, id string, chunkCount int, processedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// IngestJobRepositoryInterface defines the repository interface for ingest job persistence
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// BlobStore persists raw uploaded files.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// TextExtractor converts a stored file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64, fileType domain.FileType) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// UploadInput represents the input for uploading a document
type UploadInput struct {
	SessionID   string
	FileName    string
	Size        int64
	ContentType string
	Domain      string
	Content     io.Reader
}

// ListDocumentsInput represents the input for listing documents
type ListDocumentsInput struct {
	SessionID string
	Domain    string
	Status    string
	Cursor    string
	Limit     int
}

// DocumentListFilter narrows a document listing. Zero-value fields apply no
// constraint.
type DocumentListFilter struct {
	SessionID string
	Domain    domain.DocumentDomain
	Status    domain.UploadStatus
}

// ListDocumentsOutput represents a page of documents
type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// DeleteDocumentOutput reports what a delete removed.
type DeleteDocumentOutput struct {
	DocumentID    string
	RemovedChunks int
}

// DocumentService handles document upload, processing and lifecycle.
type DocumentService struct {
	docRepo      DocumentRepositoryInterface
	jobRepo      IngestJobRepositoryInterface
	txRunner     TxRunner
	blobs        BlobStore
	extractor    TextExtractor
	chunker      *Chunker
	retrieval    *RetrievalService
	uuidGen      UUIDGenerator
	maxFileBytes int64
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(
	docRepo DocumentRepositoryInterface,
	jobRepo IngestJobRepositoryInterface,
	txRunner TxRunner,
	blobs BlobStore,
	extractor TextExtractor,
	chunker *Chunker,
	retrieval *RetrievalService,
	maxFileBytes int64,
) *DocumentService {
	if maxFileBytes <= 0 {
		maxFileBytes = 50 * 1024 * 1024
	}
	return &DocumentService{
		docRepo:      docRepo,
		jobRepo:      jobRepo,
		txRunner:     txRunner,
		blobs:        blobs,
		extractor:    extractor,
		chunker:      chunker,
		retrieval:    retrieval,
		uuidGen:      &DefaultUUIDGenerator{},
		maxFileBytes: maxFileBytes,
	}
}

// WithUUIDGen overrides the UUID generator (for testing).
func (s *DocumentService) WithUUIDGen(g UUIDGenerator) *DocumentService {
	s.uuidGen = g
	return s
}

// Upload validates and stores a file, records the document, and queues an
// ingest job. The document starts in pending status; the worker drives it to
// completed or failed.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		SessionID: input.SessionID,
		Domain:    input.Domain,
		Operation: "upload",
	})
	defer span.End()

	if input.Size > s.maxFileBytes {
		return nil, domain.ErrFileTooLarge
	}

	fileType, err := domain.FileTypeFromName(input.FileName)
	if err != nil {
		return nil, err
	}

	docDomain, err := domain.ParseDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	docID := s.uuidGen.NewString()
	storageKey := fmt.Sprintf("uploads/%s/%s", docID, input.FileName)

	if err := s.blobs.Put(ctx, storageKey, input.Content, input.Size, input.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	doc := &domain.Document{
		ID:         docID,
		SessionID:  input.SessionID,
		FileName:   input.FileName,
		FileType:   fileType,
		FileSize:   input.Size,
		StorageKey: storageKey,
		Domain:     docDomain,
		Status:     domain.UploadStatusPending,
		UploadedAt: now,
	}

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	job := domain.NewIngestJob(s.uuidGen.NewString(), docID)

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		return repos.IngestJobs().Create(ctx, job)
	})
	if err != nil {
		// Stored blob is orphaned if the record never landed.
		if delErr := s.blobs.Delete(ctx, storageKey); delErr != nil {
			log.Printf("failed to clean up blob %s: %v", storageKey, delErr)
		}
		return nil, err
	}

	return doc, nil
}

// GetByID retrieves a document by ID
func (s *DocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, id)
}

// List returns a page of documents, optionally narrowed by session, domain
// and processing status.
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	filter := DocumentListFilter{SessionID: input.SessionID}
	if input.Domain != "" {
		d, err := domain.ParseDomain(input.Domain)
		if err != nil {
			return nil, err
		}
		filter.Domain = d
	}
	if input.Status != "" {
		status := domain.UploadStatus(strings.ToLower(strings.TrimSpace(input.Status)))
		if !domain.IsValidUploadStatus(status) {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid status: %s", input.Status))
		}
		filter.Status = status
	}

	page, err := s.docRepo.ListWithCursor(ctx, filter, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Delete removes a document's index entries, stored file and record. The
// operation is idempotent: deleting an unknown document reports zero removed
// chunks and no error.
func (s *DocumentService) Delete(ctx context.Context, id string) (*DeleteDocumentOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "delete",
	})
	defer span.End()

	removed, err := s.retrieval.DeleteDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return &DeleteDocumentOutput{DocumentID: id, RemovedChunks: removed}, nil
		}
		return nil, err
	}

	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
		log.Printf("failed to delete blob %s: %v", doc.StorageKey, err)
	}

	if err := s.docRepo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, err
	}

	return &DeleteDocumentOutput{DocumentID: id, RemovedChunks: removed}, nil
}

// Reprocess resets a document to pending and queues a fresh ingest job. The
// eventual index write replaces prior chunks, so re-running is safe.
func (s *DocumentService) Reprocess(ctx context.Context, id string) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Reprocess", telemetry.SpanAttributes{
		DocumentID: id,
		Operation:  "reprocess",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	job := domain.NewIngestJob(s.uuidGen.NewString(), doc.ID)

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().UpdateStatus(ctx, doc.ID, domain.UploadStatusPending, ""); err != nil {
			return err
		}
		return repos.IngestJobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	doc.Status = domain.UploadStatusPending
	doc.Error = ""
	return doc, nil
}

// Process runs the ingest pipeline for one document: fetch the stored file,
// extract text, chunk it and index the embeddings. It is called by the
// background worker, never from a request handler.
func (s *DocumentService) Process(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Process", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "process",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.docRepo.UpdateStatus(ctx, doc.ID, domain.UploadStatusProcessing, ""); err != nil {
		return err
	}

	chunkCount, err := s.ingest(ctx, doc)
	if err != nil {
		if statusErr := s.docRepo.UpdateStatus(ctx, doc.ID, domain.UploadStatusFailed, err.Error()); statusErr != nil {
			log.Printf("failed to mark document %s failed: %v", doc.ID, statusErr)
		}
		return err
	}

	return s.docRepo.MarkProcessed(ctx, doc.ID, chunkCount, time.Now().UTC())
}

func (s *DocumentService) ingest(ctx context.Context, doc *domain.Document) (int, error) {
	rc, err := s.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch stored file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, fmt.Errorf("failed to read stored file: %w", err)
	}

	text, err := s.extractor.Extract(ctx, bytes.NewReader(data), int64(len(data)), doc.FileType)
	if err != nil {
		return 0, err
	}

	chunks := s.chunker.Split(ChunkSource{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		Domain:     doc.Domain,
	}, text)

	return s.retrieval.IndexDocument(ctx, doc.ID, chunks)
}
