package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"newsnotes/internal/note/model"
	"newsnotes/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// notesArg matches a JSON-encoded notes argument by the ids it contains.
type notesArg struct {
	ids []string
}

func (a notesArg) Match(v driver.Value) bool {
	raw, ok := v.(string)
	if !ok {
		return false
	}
	var notes []model.Note
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		return false
	}
	if len(notes) != len(a.ids) {
		return false
	}
	for i, n := range notes {
		if n.ID != a.ids[i] {
			return false
		}
	}
	return true
}

func newMockRepo(t *testing.T) (*NoteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNoteRepository(db), mock
}

func TestGetByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	updated := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	notes := `[{"id":"n2","article_title":"B","content":"second","created_at":"2026-10-01T12:00:00Z"},
		{"id":"n1","article_title":"A","content":"first","created_at":"2026-10-01T11:00:00Z"}]`

	mock.ExpectQuery("SELECT user_id, user_email, notes, updated_at FROM user_notes WHERE user_id = \\$1").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "user_email", "notes", "updated_at"}).
			AddRow("user-1", "reader@example.com", []byte(notes), updated))

	row, err := repo.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", row.UserEmail)
	assert.Equal(t, updated, row.UpdatedAt)
	require.Len(t, row.Notes, 2)
	assert.Equal(t, "n2", row.Notes[0].ID)
	assert.Equal(t, "second", row.Notes[0].Content)
	assert.Equal(t, "first", row.Notes[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUserNullNotes(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "user_email", "notes", "updated_at"}).
			AddRow("user-1", "", nil, time.Now()))

	row, err := repo.GetByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, row.Notes)
	assert.Empty(t, row.Notes)
}

func TestGetByUserNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT user_id").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "user_email", "notes", "updated_at"}))

	_, err := repo.GetByUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetByUserRelationMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT user_id").
		WithArgs("user-1").
		WillReturnError(&pq.Error{Code: "42P01", Message: `relation "user_notes" does not exist`})

	_, err := repo.GetByUser(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, storage.IsRelationMissing(err))
}

func TestGetByUserCorruptDocument(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT user_id").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "user_email", "notes", "updated_at"}).
			AddRow("user-1", "", []byte(`{"not":"an array"}`), time.Now()))

	_, err := repo.GetByUser(context.Background(), "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode notes")
}

func TestInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	row := &model.UserNoteRow{
		UserID:    "user-1",
		UserEmail: "reader@example.com",
		Notes:     []model.Note{{ID: "n1", Content: "first"}},
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO user_notes \\(user_id, user_email, notes, updated_at\\)").
		WithArgs("user-1", "reader@example.com", notesArg{ids: []string{"n1"}}, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	row := &model.UserNoteRow{
		UserID:    "user-1",
		Notes:     []model.Note{{ID: "n2"}, {ID: "n1"}},
		UpdatedAt: now,
	}

	mock.ExpectExec("UPDATE user_notes SET notes = \\$1, updated_at = \\$2 WHERE user_id = \\$3").
		WithArgs(notesArg{ids: []string{"n2", "n1"}}, now, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateEmptyWritesArray(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE user_notes").
		WithArgs("[]", now, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), &model.UserNoteRow{UserID: "user-1", UpdatedAt: now}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSurfacesError(t *testing.T) {
	repo, mock := newMockRepo(t)
	cause := errors.New("connection reset")
	mock.ExpectExec("UPDATE user_notes").WillReturnError(cause)

	err := repo.Update(context.Background(), &model.UserNoteRow{UserID: "user-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.False(t, storage.IsRelationMissing(err))
}

func TestDeleteByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM user_notes WHERE user_id = \\$1").
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByUser(context.Background(), "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
