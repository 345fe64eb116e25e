package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clearsight-ai/docchat/internal/api"
	"github.com/clearsight-ai/docchat/internal/domain"
)

type SearchService interface {
	Search(ctx context.Context, query string, topK int, filter domain.RetrievalFilter) ([]domain.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k"`
	Domain      string   `json:"domain"`
	DocumentIDs []string `json:"document_ids"`
}

type SearchResponse struct {
	Results []domain.SearchResult `json:"results"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	docDomain, err := domain.ParseDomain(req.Domain)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results, err := h.svc.Search(r.Context(), req.Query, req.TopK, domain.RetrievalFilter{
		DocumentIDs: req.DocumentIDs,
		Domain:      docDomain,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}
