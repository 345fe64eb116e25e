package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentDomain classifies a document for retrieval filtering and prompt selection
type DocumentDomain string

const (
	DomainLegal     DocumentDomain = "legal"
	DomainMedical   DocumentDomain = "medical"
	DomainFinancial DocumentDomain = "financial"
	DomainTechnical DocumentDomain = "technical"
	DomainGeneral   DocumentDomain = "general"
)

// Domains lists every supported document domain
var Domains = []DocumentDomain{
	DomainLegal,
	DomainMedical,
	DomainFinancial,
	DomainTechnical,
	DomainGeneral,
}

// FileType is the declared type tag of an uploaded file
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeText FileType = "text"
	FileTypeDocx FileType = "docx"
	FileTypeXlsx FileType = "xlsx"
)

// UploadStatus represents the processing state of an uploaded document
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

// Document represents an uploaded file and its processing state
type Document struct {
	ID          string
	SessionID   string
	FileName    string
	FileType    FileType
	FileSize    int64
	StorageKey  string
	Domain      DocumentDomain
	Status      UploadStatus
	ChunkCount  int
	Error       string
	UploadedAt  time.Time
	ProcessedAt *time.Time
}

// FileTypeFromName maps a file name extension to its declared type tag.
// Returns ErrUnsupportedFormat for extensions outside the supported set.
func FileTypeFromName(name string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FileTypePDF, nil
	case ".txt", ".md":
		return FileTypeText, nil
	case ".docx", ".doc":
		return FileTypeDocx, nil
	case ".xlsx", ".xls":
		return FileTypeXlsx, nil
	default:
		return "", NewDomainError(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported file type: %s", filepath.Ext(name)))
	}
}

// ParseDomain normalizes a domain string, defaulting to general when empty.
func ParseDomain(value string) (DocumentDomain, error) {
	if strings.TrimSpace(value) == "" {
		return DomainGeneral, nil
	}
	d := DocumentDomain(strings.ToLower(strings.TrimSpace(value)))
	if !IsValidDomain(d) {
		return "", NewDomainError(ErrCodeValidation, fmt.Sprintf("invalid domain: %s", value))
	}
	return d, nil
}

// IsValidDomain checks if a DocumentDomain is one of the supported values
func IsValidDomain(d DocumentDomain) bool {
	switch d {
	case DomainLegal, DomainMedical, DomainFinancial, DomainTechnical, DomainGeneral:
		return true
	}
	return false
}

// IsValidUploadStatus checks if an UploadStatus is valid
func IsValidUploadStatus(s UploadStatus) bool {
	switch s {
	case UploadStatusPending, UploadStatusProcessing, UploadStatusCompleted, UploadStatusFailed:
		return true
	}
	return false
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.FileName == "" {
		return fmt.Errorf("document FileName is required")
	}

	if d.FileSize < 0 {
		return fmt.Errorf("document FileSize cannot be negative")
	}

	if !IsValidDomain(d.Domain) {
		return fmt.Errorf("document Domain is invalid: %s", d.Domain)
	}

	if !IsValidUploadStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}
