package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/pagination"
	"github.com/clearsight-ai/docchat/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository persists chat sessions and their message transcripts.
// Message sources are stored as JSONB alongside the message row.
type SessionRepository struct {
	db dbtx
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: pool}
}

func NewSessionRepositoryWithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) CreateSession(ctx context.Context, s *domain.ChatSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, name, user_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		s.ID, s.Name, nullableString(s.UserID), s.CreatedAt,
	)
	return err
}

func (r *SessionRepository) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	var userID pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, name, user_id, created_at FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &userID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	if userID.Valid {
		s.UserID = userID.String
	}
	return &s, nil
}

func (r *SessionRepository) ListSessionsWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.SessionPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, name, user_id, created_at
			 FROM chat_sessions
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, name, user_id, created_at
			 FROM chat_sessions
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.ChatSession
	for rows.Next() {
		var s domain.ChatSession
		var userID pgtype.Text
		if err := rows.Scan(&s.ID, &s.Name, &userID, &s.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			s.UserID = userID.String
		}
		items = append(items, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.SessionPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM chat_sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) AppendMessage(ctx context.Context, m *domain.ChatMessage) error {
	if err := domain.ValidateChatMessage(m); err != nil {
		return err
	}

	var sources []byte
	if len(m.Sources) > 0 {
		data, err := json.Marshal(m.Sources)
		if err != nil {
			return err
		}
		sources = data
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, sources, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.SessionID, m.Role, m.Content, sources, m.CreatedAt,
	)
	return err
}

// ListMessages returns a session's full transcript in chronological order.
func (r *SessionRepository) ListMessages(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, content, sources, created_at
		 FROM chat_messages
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

// RecentMessages returns the newest limit messages, oldest first, so the
// result slots directly into a model conversation.
func (r *SessionRepository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, role, content, sources, created_at FROM (
			SELECT id, session_id, role, content, sources, created_at
			FROM chat_messages
			WHERE session_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		 ) latest
		 ORDER BY created_at ASC, id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageRows(rows)
}

func scanMessageRows(rows pgx.Rows) ([]*domain.ChatMessage, error) {
	var messages []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var sources []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &sources, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &m.Sources); err != nil {
				return nil, err
			}
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
