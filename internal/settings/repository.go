package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"newsnotes/internal/storage"
	"newsnotes/pkg/logger"
)

type Repository struct {
	DB *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// GetAppearance returns the raw stored document or storage.ErrNotFound.
func (r *Repository) GetAppearance(ctx context.Context, userID string) ([]byte, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `SELECT appearance FROM user_settings WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil && !storage.IsRelationMissing(err) {
		logger.Sugar.Errorf("Failed to get settings for user %s: %v", userID, err)
	}
	return raw, storage.Wrap("get user_settings", err)
}

func (r *Repository) UpsertAppearance(ctx context.Context, userID string, a Appearance, now time.Time) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO user_settings (user_id, appearance, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET appearance = $2, updated_at = $3`, userID, string(raw), now)
	if err != nil {
		logger.Sugar.Errorf("Failed to save settings for user %s: %v", userID, err)
	}
	return storage.Wrap("upsert user_settings", err)
}

func (r *Repository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID)
	if err != nil && !storage.IsRelationMissing(err) {
		logger.Sugar.Errorf("Failed to delete settings for user %s: %v", userID, err)
	}
	return storage.Wrap("delete user_settings", err)
}
