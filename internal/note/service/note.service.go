package service

import (
	"context"
	"errors"
	"time"

	"newsnotes/internal/auth"
	"newsnotes/internal/note/model"
	"newsnotes/internal/storage"
	"newsnotes/pkg/logger"

	"github.com/google/uuid"
)

// ErrUnauthenticated is returned before any storage access when nobody is
// signed in.
var ErrUnauthenticated = errors.New("not logged in")

const (
	OpSave   = "save"
	OpList   = "list"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Repository is the row-level storage the store reads and writes.
type Repository interface {
	GetByUser(ctx context.Context, userID string) (*model.UserNoteRow, error)
	Insert(ctx context.Context, row *model.UserNoteRow) error
	Update(ctx context.Context, row *model.UserNoteRow) error
}

// Notifier is told after every successful write to a user's row.
type Notifier interface {
	NotesChanged(userID string, change model.NotesChanged)
}

// Recorder counts store operations by outcome.
type Recorder interface {
	RecordNoteOperation(op string, err error)
}

// NoteService keeps each user's notes as one JSON array in one row. Every
// mutation is a plain read-modify-write with no version check, so two
// concurrent writes for the same user can lose one of them.
type NoteService struct {
	Repo     Repository
	Identity auth.Identity
	Notifier Notifier
	Recorder Recorder

	Now   func() time.Time
	NewID func() string
}

func NewNoteService(repo Repository, identity auth.Identity, notifier Notifier, recorder Recorder) *NoteService {
	return &NoteService{
		Repo:     repo,
		Identity: identity,
		Notifier: notifier,
		Recorder: recorder,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
	}
}

// SaveNote prepends a new note to the caller's collection, creating the row
// on first use.
func (s *NoteService) SaveNote(ctx context.Context, req model.SaveNoteRequest) (note *model.Note, err error) {
	defer func() { s.record(OpSave, err) }()

	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	row, exists, err := s.load(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	n := model.Note{
		ID:           s.NewID(),
		ArticleTitle: req.ArticleTitle,
		ArticleSlug:  req.ArticleSlug,
		ArticleURL:   req.ArticleURL,
		ArticleDate:  req.ArticleDate,
		SourceName:   req.SourceName,
		Content:      req.Content,
		CreatedAt:    now,
	}

	if !exists {
		row = &model.UserNoteRow{UserID: user.ID, UserEmail: user.Email}
	}
	notes := make([]model.Note, 0, len(row.Notes)+1)
	notes = append(notes, n)
	row.Notes = append(notes, row.Notes...)
	row.UpdatedAt = now

	if exists {
		err = s.Repo.Update(ctx, row)
	} else {
		err = s.Repo.Insert(ctx, row)
	}
	if err != nil {
		return nil, err
	}

	s.notify(user.ID, OpSave, n.ID, len(row.Notes))
	return &n, nil
}

// GetUserNotes returns the caller's notes in persisted order. A missing row or
// a missing table both read as "no notes yet".
func (s *NoteService) GetUserNotes(ctx context.Context) (notes []model.Note, err error) {
	defer func() { s.record(OpList, err) }()

	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	row, err := s.Repo.GetByUser(ctx, user.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return []model.Note{}, nil
	case storage.IsRelationMissing(err):
		logger.Sugar.Warnf("user_notes relation missing, returning no notes for user %s: %v", user.ID, err)
		return []model.Note{}, nil
	case err != nil:
		return nil, err
	}
	if row.Notes == nil {
		return []model.Note{}, nil
	}
	return row.Notes, nil
}

// UpdateNote replaces the content of the note with the given id. An unknown
// id leaves the notes untouched and is not an error.
func (s *NoteService) UpdateNote(ctx context.Context, id, content string) (err error) {
	defer func() { s.record(OpUpdate, err) }()

	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}

	row, exists, err := s.load(ctx, user.ID)
	if err != nil || !exists {
		return err
	}

	for i := range row.Notes {
		if row.Notes[i].ID == id {
			row.Notes[i].Content = content
			break
		}
	}
	row.UpdatedAt = s.Now()

	if err := s.Repo.Update(ctx, row); err != nil {
		return err
	}
	s.notify(user.ID, OpUpdate, id, len(row.Notes))
	return nil
}

// DeleteNote removes the note with the given id. An unknown id leaves the
// notes untouched and is not an error.
func (s *NoteService) DeleteNote(ctx context.Context, id string) (err error) {
	defer func() { s.record(OpDelete, err) }()

	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}

	row, exists, err := s.load(ctx, user.ID)
	if err != nil || !exists {
		return err
	}

	kept := make([]model.Note, 0, len(row.Notes))
	for _, n := range row.Notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	row.Notes = kept
	row.UpdatedAt = s.Now()

	if err := s.Repo.Update(ctx, row); err != nil {
		return err
	}
	s.notify(user.ID, OpDelete, id, len(row.Notes))
	return nil
}

func (s *NoteService) currentUser(ctx context.Context) (*auth.User, error) {
	user, err := s.Identity.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil || user.ID == "" {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// load reads the user's row; exists is false when the user has none yet.
func (s *NoteService) load(ctx context.Context, userID string) (*model.UserNoteRow, bool, error) {
	row, err := s.Repo.GetByUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

func (s *NoteService) notify(userID, op, noteID string, count int) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.NotesChanged(userID, model.NotesChanged{Op: op, NoteID: noteID, Count: count})
}

func (s *NoteService) record(op string, err error) {
	if s.Recorder != nil {
		s.Recorder.RecordNoteOperation(op, err)
	}
}
