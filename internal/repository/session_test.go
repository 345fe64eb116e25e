//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/pagination"
	"github.com/clearsight-ai/docchat/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSession(ctx context.Context, t *testing.T, repo *SessionRepository, createdAt time.Time) *domain.ChatSession {
	t.Helper()
	s := &domain.ChatSession{
		ID:        uuid.NewString(),
		Name:      "Test session",
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.CreateSession(ctx, s))
	return s
}

func seedMessage(sessionID string, role domain.MessageRole, content string, createdAt time.Time) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	s := &domain.ChatSession{
		ID:        uuid.NewString(),
		Name:      "Contract review",
		UserID:    "user-1",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.CreateSession(ctx, s))

	retrieved, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Name, retrieved.Name)
	assert.Equal(t, "user-1", retrieved.UserID)
}

func TestSessionRepository_GetSession_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	_, err := repo.GetSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_ListSessionsWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	base := time.Now().UTC()
	for i := 0; i < 4; i++ {
		seedSession(ctx, t, repo, base.Add(time.Duration(i)*time.Second))
	}

	page, err := repo.ListSessionsWithCursor(ctx, nil, 3)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.True(t, page.HasMore)

	cursor, err := pagination.DecodeCursor(page.NextCursor)
	require.NoError(t, err)

	rest, err := repo.ListSessionsWithCursor(ctx, cursor, 3)
	require.NoError(t, err)
	assert.Len(t, rest.Items, 1)
	assert.False(t, rest.HasMore)
}

func TestSessionRepository_DeleteSession(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	s := seedSession(ctx, t, repo, time.Now())
	require.NoError(t, repo.AppendMessage(ctx, seedMessage(s.ID, domain.MessageRoleUser, "hello", time.Now())))

	require.NoError(t, repo.DeleteSession(ctx, s.ID))

	_, err := repo.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Messages cascade with the session.
	messages, err := repo.ListMessages(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	err = repo.DeleteSession(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_AppendAndListMessages(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	s := seedSession(ctx, t, repo, time.Now())
	base := time.Now().UTC()

	require.NoError(t, repo.AppendMessage(ctx, seedMessage(s.ID, domain.MessageRoleUser, "question", base)))

	assistant := seedMessage(s.ID, domain.MessageRoleAssistant, "answer", base.Add(time.Second))
	assistant.Sources = []domain.SearchResult{
		{ChunkText: "the excerpt", Score: 0.93, DocumentName: "report.pdf", ChunkIndex: 4},
	}
	require.NoError(t, repo.AppendMessage(ctx, assistant))

	messages, err := repo.ListMessages(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, domain.MessageRoleUser, messages[0].Role)
	assert.Equal(t, domain.MessageRoleAssistant, messages[1].Role)
	require.Len(t, messages[1].Sources, 1)
	assert.Equal(t, "report.pdf", messages[1].Sources[0].DocumentName)
	assert.InDelta(t, 0.93, messages[1].Sources[0].Score, 0.0001)
}

func TestSessionRepository_AppendMessage_InvalidRole(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	s := seedSession(ctx, t, repo, time.Now())

	msg := seedMessage(s.ID, "narrator", "off-script", time.Now())
	assert.Error(t, repo.AppendMessage(ctx, msg))
}

func TestSessionRepository_RecentMessages(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSessionRepository(pool)

	s := seedSession(ctx, t, repo, time.Now())
	base := time.Now().UTC()

	for i := 0; i < 6; i++ {
		role := domain.MessageRoleUser
		if i%2 == 1 {
			role = domain.MessageRoleAssistant
		}
		msg := seedMessage(s.ID, role, "message", base.Add(time.Duration(i)*time.Second))
		msg.Content = msg.Content + "-" + msg.ID[:4]
		require.NoError(t, repo.AppendMessage(ctx, msg))
	}

	recent, err := repo.RecentMessages(ctx, s.ID, 4)
	require.NoError(t, err)
	require.Len(t, recent, 4)

	// Window holds the newest messages, returned oldest first.
	for i := 1; i < len(recent); i++ {
		assert.True(t, recent[i].CreatedAt.After(recent[i-1].CreatedAt))
	}
	assert.True(t, recent[0].CreatedAt.Equal(base.Add(2*time.Second).Truncate(time.Microsecond)))
}
