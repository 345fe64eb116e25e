package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/clearsight-ai/docchat/internal/api"
	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/service"
)

type ChatService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	SessionID   string   `json:"session_id"`
	Message     string   `json:"message"`
	Domain      string   `json:"domain"`
	DocumentIDs []string `json:"document_ids"`
	TopK        int      `json:"top_k"`
}

type ChatResponse struct {
	SessionID string                `json:"session_id"`
	Answer    string                `json:"answer"`
	Sources   []domain.SearchResult `json:"sources"`
	Model     string                `json:"model,omitempty"`
	Fallback  bool                  `json:"fallback,omitempty"`
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" {
		api.Error(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	out, err := h.svc.Ask(r.Context(), service.AskInput{
		SessionID:   req.SessionID,
		Message:     req.Message,
		Domain:      req.Domain,
		DocumentIDs: req.DocumentIDs,
		TopK:        req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{
		SessionID: out.SessionID,
		Answer:    out.Answer,
		Sources:   out.Sources,
		Model:     out.Model,
		Fallback:  out.Fallback,
	})
}
