package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clearsight-ai/docchat/internal/domain"
	"github.com/clearsight-ai/docchat/internal/pagination"
	"github.com/clearsight-ai/docchat/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

const documentColumns = `id, session_id, file_name, file_type, file_size, storage_key, domain, status, chunk_count, error, uploaded_at, processed_at`

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, nullableString(d.SessionID), d.FileName, d.FileType, d.FileSize, d.StorageKey,
		d.Domain, d.Status, d.ChunkCount, nullableString(d.Error), d.UploadedAt, d.ProcessedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, filter service.DocumentListFilter, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var where []string
	var args []any

	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		where = append(where, fmt.Sprintf("session_id = $%d", len(args)))
	}
	if filter.Domain != "" {
		args = append(args, filter.Domain)
		where = append(where, fmt.Sprintf("domain = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		where = append(where, fmt.Sprintf("(uploaded_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	query := `SELECT ` + documentColumns + ` FROM documents`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY uploaded_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return buildDocumentPage(rows, limit)
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.UploadStatus, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, error = $2 WHERE id = $3`,
		status, nullableString(errMsg), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) MarkProcessed(ctx context.Context, id string, chunkCount int, processedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1, chunk_count = $2, error = NULL, processed_at = $3
		 WHERE id = $4`,
		domain.UploadStatusCompleted, chunkCount, processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func buildDocumentPage(rows pgx.Rows, limit int) (*service.DocumentPageResult, error) {
	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UploadedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var sessionID, errMsg pgtype.Text
	if err := row.Scan(&d.ID, &sessionID, &d.FileName, &d.FileType, &d.FileSize, &d.StorageKey,
		&d.Domain, &d.Status, &d.ChunkCount, &errMsg, &d.UploadedAt, &d.ProcessedAt); err != nil {
		return nil, err
	}
	if sessionID.Valid {
		d.SessionID = sessionID.String
	}
	if errMsg.Valid {
		d.Error = errMsg.String
	}
	return &d, nil
}
