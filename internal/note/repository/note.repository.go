package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"newsnotes/internal/note/model"
	"newsnotes/internal/storage"
	"newsnotes/pkg/logger"
)

type NoteRepository struct {
	DB *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{DB: db}
}

// GetByUser loads the user's row. storage.ErrNotFound means the user has
// never saved a note.
func (r *NoteRepository) GetByUser(ctx context.Context, userID string) (*model.UserNoteRow, error) {
	var row model.UserNoteRow
	var raw []byte
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, user_email, notes, updated_at FROM user_notes WHERE user_id = $1`, userID,
	).Scan(&row.UserID, &row.UserEmail, &raw, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		if !storage.IsRelationMissing(err) {
			logger.Sugar.Errorf("Failed to get notes for user %s: %v", userID, err)
		}
		return nil, storage.Wrap("get user_notes", err)
	}

	if err := decodeNotes(raw, &row.Notes); err != nil {
		logger.Sugar.Errorf("Corrupt notes document for user %s: %v", userID, err)
		return nil, err
	}
	return &row, nil
}

func (r *NoteRepository) Insert(ctx context.Context, row *model.UserNoteRow) error {
	raw, err := encodeNotes(row.Notes)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO user_notes (user_id, user_email, notes, updated_at) VALUES ($1, $2, $3, $4)`,
		row.UserID, row.UserEmail, string(raw), row.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to insert notes for user %s: %v", row.UserID, err)
	}
	return storage.Wrap("insert user_notes", err)
}

func (r *NoteRepository) Update(ctx context.Context, row *model.UserNoteRow) error {
	raw, err := encodeNotes(row.Notes)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE user_notes SET notes = $1, updated_at = $2 WHERE user_id = $3`,
		string(raw), row.UpdatedAt, row.UserID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update notes for user %s: %v", row.UserID, err)
	}
	return storage.Wrap("update user_notes", err)
}

// DeleteByUser removes the whole row. Only account deletion calls it.
func (r *NoteRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM user_notes WHERE user_id = $1`, userID)
	if err != nil && !storage.IsRelationMissing(err) {
		logger.Sugar.Errorf("Failed to delete notes for user %s: %v", userID, err)
	}
	return storage.Wrap("delete user_notes", err)
}

// encodeNotes returns the JSONB document. Callers pass it as a string since
// lib/pq sends []byte parameters as bytea.
func encodeNotes(notes []model.Note) ([]byte, error) {
	if notes == nil {
		notes = []model.Note{}
	}
	raw, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}
	return raw, nil
}

func decodeNotes(raw []byte, notes *[]model.Note) error {
	*notes = []model.Note{}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, notes); err != nil {
		return fmt.Errorf("decode notes: %w", err)
	}
	return nil
}
