package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeExtraction        = "EXTRACTION_FAILED"
	ErrCodeEmbedding         = "EMBEDDING_FAILED"
	ErrCodeVectorIndex       = "VECTOR_INDEX_FAILED"
	ErrCodeLLM               = "LLM_FAILED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidOperation  = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidDomain       = NewDomainError(ErrCodeValidation, "invalid document domain")
	ErrInvalidUploadStatus = NewDomainError(ErrCodeValidation, "invalid upload status")
	ErrInvalidChunkConfig  = NewDomainError(ErrCodeValidation, "chunk overlap must be smaller than chunk size")
	ErrEmptyQuery          = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrFileTooLarge        = NewDomainError(ErrCodeValidation, "file exceeds maximum allowed size")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrSessionNotFound  = NewDomainError(ErrCodeNotFound, "chat session not found")
)

// Pipeline errors
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeUnsupportedFormat, "unsupported file type")
)

// NewExtractionError wraps a parser failure as an extraction failure
func NewExtractionError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, "failed to extract document text", err)
}

// NewEmbeddingError wraps an embedding gateway failure
func NewEmbeddingError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, "embedding request failed", err)
}

// NewVectorIndexError wraps a vector index failure
func NewVectorIndexError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeVectorIndex, "vector index operation failed", err)
}

// NewLLMError wraps an LLM gateway failure, keeping the upstream detail
func NewLLMError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeLLM, "completion request failed", err)
}
