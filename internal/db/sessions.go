package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopdesk/catalog-service/internal/models"
)

// CreateUploadSession records the start of an import.
func (s *Store) CreateUploadSession(ctx context.Context, sess *models.UploadSession) error {
	if sess.Status == "" {
		sess.Status = models.UploadProcessing
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO upload_sessions (type, status, file_name, total_records, processed_records, error_message)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''))
		RETURNING id, created_at
	`, sess.Type, sess.Status, sess.FileName, sess.TotalRecords, sess.ProcessedRecords, sess.ErrorMessage,
	).Scan(&sess.ID, &sess.CreatedAt)
}

// FinishUploadSession stores the final status and counters of an import.
func (s *Store) FinishUploadSession(ctx context.Context, sess *models.UploadSession) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE upload_sessions
		SET status = $1, total_records = $2, processed_records = $3, error_message = NULLIF($4, '')
		WHERE id = $5
	`, sess.Status, sess.TotalRecords, sess.ProcessedRecords, sess.ErrorMessage, sess.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUploadSessions returns the most recent imports.
func (s *Store) ListUploadSessions(ctx context.Context, limit int) ([]models.UploadSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, status, COALESCE(file_name, ''), total_records, processed_records,
		       COALESCE(error_message, ''), created_at
		FROM upload_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.UploadSession{}
	for rows.Next() {
		var sess models.UploadSession
		err := rows.Scan(&sess.ID, &sess.Type, &sess.Status, &sess.FileName,
			&sess.TotalRecords, &sess.ProcessedRecords, &sess.ErrorMessage, &sess.CreatedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetUploadSession returns one upload session.
func (s *Store) GetUploadSession(ctx context.Context, id uuid.UUID) (*models.UploadSession, error) {
	var sess models.UploadSession
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, status, COALESCE(file_name, ''), total_records, processed_records,
		       COALESCE(error_message, ''), created_at
		FROM upload_sessions
		WHERE id = $1
	`, id).Scan(&sess.ID, &sess.Type, &sess.Status, &sess.FileName,
		&sess.TotalRecords, &sess.ProcessedRecords, &sess.ErrorMessage, &sess.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}
