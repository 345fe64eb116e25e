package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/pagination"
	"github.com/clearsight-ai/docchat/internal/telemetry"
)

// historyWindow is how many prior messages are replayed to the model.
const historyWindow = 10

// FallbackAnswer is returned when the language model is unavailable.
const FallbackAnswer = "I'm sorry, I can't generate an answer right now. Please try again in a moment."

// domainPrompts maps a document domain to the system prompt persona used
// when answering questions against that domain's documents.
var domainPrompts = map[domain.DocumentDomain]string{
	domain.DomainLegal:     "You are a legal document assistant. Answer questions using only the provided document excerpts. Cite the document name when referencing a clause. If the excerpts do not contain the answer, say so.",
	domain.DomainMedical:   "You are a medical document assistant. Answer questions using only the provided document excerpts. Be precise with terminology and never give medical advice beyond what the documents state.",
	domain.DomainFinancial: "You are a financial document assistant. Answer questions using only the provided document excerpts. Quote figures exactly as they appear in the documents.",
	domain.DomainTechnical: "You are a technical document assistant. Answer questions using only the provided document excerpts. Prefer exact names of components, versions and settings from the documents.",
	domain.DomainGeneral:   "You are a document assistant. Answer questions using only the provided document excerpts. If the excerpts do not contain the answer, say so.",
}

// domainSuggestions maps a document domain to starter questions offered to
// the user before they type their own.
var domainSuggestions = map[domain.DocumentDomain][]string{
	domain.DomainLegal: {
		"What are the key clauses in this contract?",
		"Point out any clauses that carry legal risk",
		"Explain the termination conditions",
		"Summarize the obligations and scope of liability",
	},
	domain.DomainMedical: {
		"Summarize the patient's main symptoms and diagnosis",
		"What are the effects and side effects of the prescribed treatment?",
		"Interpret the test results",
		"What follow-up actions are recommended?",
	},
	domain.DomainFinancial: {
		"Analyze the key indicators of financial health",
		"Evaluate profitability and growth",
		"Identify the main risk factors",
		"What are the recommendations from an investment perspective?",
	},
	domain.DomainTechnical: {
		"Explain the system architecture",
		"Are there any security vulnerabilities?",
		"Suggest performance optimizations",
		"Summarize the proposed technical improvements",
	},
	domain.DomainGeneral: {
		"Summarize the key points of the document",
		"List the most important takeaways",
		"Which areas need improvement?",
		"What should be double-checked?",
	},
}

// SessionRepositoryInterface defines the repository interface for chat sessions
// and their messages.
type SessionRepositoryInterface interface {
	CreateSession(ctx context.Context, s *domain.ChatSession) error
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	ListSessionsWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*SessionPageResult, error)
	DeleteSession(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, m *domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error)
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
}

type SessionPageResult struct {
	Items      []*domain.ChatSession
	NextCursor string
	HasMore    bool
}

// ChatTurn is one message sent to the language model.
type ChatTurn struct {
	Role    string
	Content string
}

// ChatCompletion is the model's reply.
type ChatCompletion struct {
	Content     string
	Model       string
	TotalTokens int
}

// CompletionClient generates a chat completion from an ordered conversation.
type CompletionClient interface {
	Complete(ctx context.Context, turns []ChatTurn) (*ChatCompletion, error)
}

// AskInput represents one chat request
type AskInput struct {
	SessionID   string
	Message     string
	Domain      string
	DocumentIDs []string
	TopK        int
}

// AskOutput is the reply to a chat request
type AskOutput struct {
	SessionID string
	Answer    string
	Sources   []domain.SearchResult
	Model     string
	Fallback  bool
}

// ChatService answers questions over indexed documents. Each answer is
// grounded in retrieved chunks and persisted to the session transcript.
type ChatService struct {
	sessions  SessionRepositoryInterface
	retrieval *RetrievalService
	llm       CompletionClient
	uuidGen   UUIDGenerator
}

// NewChatService creates a new ChatService instance
func NewChatService(sessions SessionRepositoryInterface, retrieval *RetrievalService, llm CompletionClient) *ChatService {
	return &ChatService{
		sessions:  sessions,
		retrieval: retrieval,
		llm:       llm,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// WithUUIDGen overrides the UUID generator (for testing).
func (s *ChatService) WithUUIDGen(g UUIDGenerator) *ChatService {
	s.uuidGen = g
	return s
}

// CreateSession starts a new chat session.
func (s *ChatService) CreateSession(ctx context.Context, name, userID string) (*domain.ChatSession, error) {
	session := domain.NewChatSession(s.uuidGen.NewString(), name, userID, time.Now().UTC())
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by ID
func (s *ChatService) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	return s.sessions.GetSession(ctx, id)
}

// ListSessionsInput represents the input for listing sessions
type ListSessionsInput struct {
	Cursor string
	Limit  int
}

// ListSessionsOutput represents a page of sessions
type ListSessionsOutput struct {
	Items   []*domain.ChatSession
	Cursor  string
	HasMore bool
}

// ListSessions returns a page of sessions, newest first.
func (s *ChatService) ListSessions(ctx context.Context, input ListSessionsInput) (*ListSessionsOutput, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
	}

	page, err := s.sessions.ListSessionsWithCursor(ctx, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListSessionsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// DeleteSession removes a session and its transcript.
func (s *ChatService) DeleteSession(ctx context.Context, id string) error {
	return s.sessions.DeleteSession(ctx, id)
}

// History returns a session's full transcript in chronological order.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListMessages(ctx, sessionID)
}

// SuggestionsOutput carries starter questions for one domain.
type SuggestionsOutput struct {
	Domain      domain.DocumentDomain
	Suggestions []string
}

// Suggestions returns starter questions for a session, keyed by document
// domain. An unrecognized domain falls back to the general set.
func (s *ChatService) Suggestions(ctx context.Context, sessionID, rawDomain string) (*SuggestionsOutput, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	docDomain, err := domain.ParseDomain(rawDomain)
	if err != nil {
		docDomain = domain.DomainGeneral
	}

	return &SuggestionsOutput{
		Domain:      docDomain,
		Suggestions: domainSuggestions[docDomain],
	}, nil
}

// Ask answers a question using retrieved document context. When the language
// model fails, the user still gets a fallback answer and the transcript stays
// consistent; retrieval failures surface as errors.
func (s *ChatService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Ask", telemetry.SpanAttributes{
		SessionID: input.SessionID,
		Domain:    input.Domain,
		Operation: "ask",
	})
	defer span.End()

	if strings.TrimSpace(input.Message) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "message is required")
	}

	docDomain, err := domain.ParseDomain(input.Domain)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.sessions.RecentMessages(ctx, session.ID, historyWindow)
	if err != nil {
		return nil, err
	}

	sources, err := s.retrieval.Search(ctx, input.Message, input.TopK, domain.RetrievalFilter{
		DocumentIDs: input.DocumentIDs,
		Domain:      docDomain,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	userMsg := &domain.ChatMessage{
		ID:        s.uuidGen.NewString(),
		SessionID: session.ID,
		Role:      domain.MessageRoleUser,
		Content:   input.Message,
		CreatedAt: now,
	}
	if err := s.sessions.AppendMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	turns := buildTurns(docDomain, sources, history, input.Message)

	answer := FallbackAnswer
	model := ""
	fallback := true
	completion, llmErr := s.llm.Complete(ctx, turns)
	if llmErr != nil {
		telemetry.CaptureError(ctx, domain.NewLLMError(llmErr))
	} else {
		answer = completion.Content
		model = completion.Model
		fallback = false
	}

	assistantMsg := &domain.ChatMessage{
		ID:        s.uuidGen.NewString(),
		SessionID: session.ID,
		Role:      domain.MessageRoleAssistant,
		Content:   answer,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	return &AskOutput{
		SessionID: session.ID,
		Answer:    answer,
		Sources:   sources,
		Model:     model,
		Fallback:  fallback,
	}, nil
}

// buildTurns assembles the model conversation: system persona with retrieved
// excerpts, prior history, then the new question.
func buildTurns(docDomain domain.DocumentDomain, sources []domain.SearchResult, history []*domain.ChatMessage, question string) []ChatTurn {
	var sb strings.Builder
	sb.WriteString(domainPrompts[docDomain])
	if len(sources) > 0 {
		sb.WriteString("\n\nDocument excerpts:\n")
		for i, src := range sources {
			fmt.Fprintf(&sb, "\n[%d] %s (chunk %d)\n%s\n", i+1, src.DocumentName, src.ChunkIndex, src.ChunkText)
		}
	} else {
		sb.WriteString("\n\nNo relevant document excerpts were found for this question.")
	}

	turns := []ChatTurn{{Role: "system", Content: sb.String()}}
	for _, m := range history {
		turns = append(turns, ChatTurn{Role: string(m.Role), Content: m.Content})
	}
	turns = append(turns, ChatTurn{Role: "user", Content: question})
	return turns
}
