package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/clearsight-ai/docchat/internal/api"
	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/service"
	"github.com/go-chi/chi/v5"
)

type SessionService interface {
	CreateSession(ctx context.Context, name, userID string) (*domain.ChatSession, error)
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, input service.ListSessionsInput) (*service.ListSessionsOutput, error)
	DeleteSession(ctx context.Context, id string) error
	History(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error)
	Suggestions(ctx context.Context, sessionID, docDomain string) (*service.SuggestionsOutput, error)
}

type SessionHandler struct {
	svc SessionService
}

func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type CreateSessionRequest struct {
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

type SessionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserID    string `json:"user_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func sessionToResponse(s *domain.ChatSession) *SessionResponse {
	return &SessionResponse{
		ID:        s.ID,
		Name:      s.Name,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

type ListSessionsResponse struct {
	Items   []*SessionResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

type MessageResponse struct {
	ID        string                `json:"id"`
	Role      string                `json:"role"`
	Content   string                `json:"content"`
	Sources   []domain.SearchResult `json:"sources,omitempty"`
	CreatedAt string                `json:"created_at"`
}

func messageToResponse(m *domain.ChatMessage) *MessageResponse {
	return &MessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Sources:   m.Sources,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		req.Name = "New chat"
	}

	session, err := h.svc.CreateSession(r.Context(), req.Name, req.UserID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, sessionToResponse(session))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	session, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sessionToResponse(session))
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	out, err := h.svc.ListSessions(r.Context(), service.ListSessionsInput{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*SessionResponse, 0, len(out.Items))
	for _, s := range out.Items {
		items = append(items, sessionToResponse(s))
	}

	api.Success(w, http.StatusOK, ListSessionsResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteSession(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id})
}

type SuggestionsResponse struct {
	Domain      string   `json:"domain"`
	Suggestions []string `json:"suggestions"`
}

func (h *SessionHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	out, err := h.svc.Suggestions(r.Context(), id, r.URL.Query().Get("domain"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SuggestionsResponse{
		Domain:      string(out.Domain),
		Suggestions: out.Suggestions,
	})
}

func (h *SessionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	messages, err := h.svc.History(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		items = append(items, messageToResponse(m))
	}

	api.Success(w, http.StatusOK, map[string]interface{}{"items": items})
}
