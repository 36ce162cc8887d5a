// Package account implements self-service account deletion.
package account

import (
	"context"
	"errors"
	"fmt"

	"newsnotes/internal/auth"
	"newsnotes/internal/storage"
	"newsnotes/pkg/logger"
)

const Confirmation = "DELETE"

var (
	ErrConfirmation = errors.New("deletion confirmation is required. Please type DELETE exactly and try again.")
	ErrAuthDelete   = errors.New("auth delete failed")
)

// RowDeleter removes every row a user owns in one table.
type RowDeleter interface {
	DeleteByUser(ctx context.Context, userID string) error
}

type Admin interface {
	Check() error
	DeleteUser(ctx context.Context, userID string) error
}

// Sessions drops a user's live connections. Implemented by socket.Hub.
type Sessions interface {
	RemoveUser(userID string)
}

type Service struct {
	Tables   map[string]RowDeleter
	Admin    Admin
	Sessions Sessions
}

func NewService(notes, settings RowDeleter, admin Admin, sessions Sessions) *Service {
	return &Service{
		Tables:   map[string]RowDeleter{"user_notes": notes, "user_settings": settings},
		Admin:    admin,
		Sessions: sessions,
	}
}

// Delete erases the user's data and identity. Tables that do not exist yet are
// skipped. Data rows go first so a failed auth delete leaves an empty account
// rather than orphaned rows.
func (s *Service) Delete(ctx context.Context, user *auth.User, confirmation string) error {
	if err := s.Admin.Check(); err != nil {
		return err
	}
	if confirmation != Confirmation {
		return ErrConfirmation
	}

	for _, table := range []string{"user_notes", "user_settings"} {
		repo, ok := s.Tables[table]
		if !ok || repo == nil {
			continue
		}
		if err := repo.DeleteByUser(ctx, user.ID); err != nil {
			if storage.IsRelationMissing(err) {
				logger.Sugar.Warnf("Skipping %s for user %s: table missing", table, user.ID)
				continue
			}
			return fmt.Errorf("DB delete failed for user data (%s): %w", table, err)
		}
	}

	if err := s.Admin.DeleteUser(ctx, user.ID); err != nil {
		logger.Sugar.Errorf("Auth delete failed for user %s: %v", user.ID, err)
		return fmt.Errorf("%w: %v", ErrAuthDelete, err)
	}

	if s.Sessions != nil {
		s.Sessions.RemoveUser(user.ID)
	}
	logger.Sugar.Infof("Account %s deleted", user.ID)
	return nil
}
