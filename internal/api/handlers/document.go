package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/clearsight-ai/docchat/internal/api"
	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
	Delete(ctx context.Context, id string) (*service.DeleteDocumentOutput, error)
	Reprocess(ctx context.Context, id string) (*domain.Document, error)
}

type DocumentHandler struct {
	svc          DocumentService
	maxFileBytes int64
}

func NewDocumentHandler(svc DocumentService, maxFileBytes int64) *DocumentHandler {
	if maxFileBytes <= 0 {
		maxFileBytes = 50 * 1024 * 1024
	}
	return &DocumentHandler{svc: svc, maxFileBytes: maxFileBytes}
}

type DocumentResponse struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id,omitempty"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	Domain      string `json:"domain"`
	Status      string `json:"status"`
	ChunkCount  int    `json:"chunk_count"`
	Error       string `json:"error,omitempty"`
	UploadedAt  string `json:"uploaded_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:         d.ID,
		SessionID:  d.SessionID,
		FileName:   d.FileName,
		FileType:   string(d.FileType),
		FileSize:   d.FileSize,
		Domain:     string(d.Domain),
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		Error:      d.Error,
		UploadedAt: d.UploadedAt.Format(time.RFC3339),
	}
	if d.ProcessedAt != nil {
		resp.ProcessedAt = d.ProcessedAt.Format(time.RFC3339)
	}
	return resp
}

type ListDocumentsResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

type DeleteDocumentResponse struct {
	DocumentID    string `json:"document_id"`
	RemovedChunks int    `json:"removed_chunks"`
}

// Upload accepts a multipart form with a "file" part plus optional
// "session_id" and "domain" fields.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxFileBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	doc, err := h.svc.Upload(r.Context(), service.UploadInput{
		SessionID:   r.FormValue("session_id"),
		FileName:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Domain:      r.FormValue("domain"),
		Content:     file,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	out, err := h.svc.List(r.Context(), service.ListDocumentsInput{
		SessionID: r.URL.Query().Get("session_id"),
		Domain:    r.URL.Query().Get("domain"),
		Status:    r.URL.Query().Get("status"),
		Cursor:    r.URL.Query().Get("cursor"),
		Limit:     limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, 0, len(out.Items))
	for _, d := range out.Items {
		items = append(items, documentToResponse(d))
	}

	api.Success(w, http.StatusOK, ListDocumentsResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	out, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteDocumentResponse{
		DocumentID:    out.DocumentID,
		RemovedChunks: out.RemovedChunks,
	})
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.Reprocess(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

// Domains lists the document domains uploads may declare.
func (h *DocumentHandler) Domains(w http.ResponseWriter, r *http.Request) {
	domains := make([]string, 0, len(domain.Domains))
	for _, d := range domain.Domains {
		domains = append(domains, string(d))
	}
	api.Success(w, http.StatusOK, map[string][]string{"domains": domains})
}
