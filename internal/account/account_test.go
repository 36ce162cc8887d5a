package account

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"newsnotes/internal/auth"
	"newsnotes/internal/storage"

	"github.com/jarcoal/httpmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const supabaseURL = "https://project.supabase.co"

func newMockedAdmin(t *testing.T) *AdminClient {
	t.Helper()
	c := NewAdminClient(supabaseURL+"/", "service-key")
	httpmock.ActivateNonDefault(c.HTTP)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func TestAdminDeleteUser(t *testing.T) {
	c := newMockedAdmin(t)

	httpmock.RegisterResponder(http.MethodDelete, supabaseURL+"/auth/v1/admin/users/user-1",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "service-key", req.Header.Get("apikey"))
			assert.Equal(t, "Bearer service-key", req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
		})
	httpmock.RegisterResponder(http.MethodDelete, supabaseURL+"/auth/v1/admin/users/user-2",
		httpmock.NewStringResponder(http.StatusNotFound, `{"msg":"User not found"}`))
	httpmock.RegisterResponder(http.MethodDelete, supabaseURL+"/auth/v1/admin/users/user-3",
		httpmock.NewStringResponder(http.StatusBadGateway, `<html>`))

	require.NoError(t, c.DeleteUser(context.Background(), "user-1"))
	assert.EqualError(t, c.DeleteUser(context.Background(), "user-2"), "User not found")
	assert.EqualError(t, c.DeleteUser(context.Background(), "user-3"), "unexpected status 502")
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestAdminCheck(t *testing.T) {
	assert.NoError(t, NewAdminClient(supabaseURL, "key").Check())
	assert.ErrorIs(t, NewAdminClient("", "key").Check(), ErrNotConfigured)
	assert.ErrorIs(t, NewAdminClient("not a url", "key").Check(), ErrNotConfigured)
	assert.ErrorIs(t, NewAdminClient(supabaseURL, "").Check(), ErrNotConfigured)
}

type fakeTable struct {
	err     error
	deleted []string
}

func (f *fakeTable) DeleteByUser(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakeAdmin struct {
	checkErr  error
	deleteErr error
	deleted   []string
}

func (f *fakeAdmin) Check() error { return f.checkErr }
func (f *fakeAdmin) DeleteUser(_ context.Context, userID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

type fakeSessions struct {
	mu      sync.Mutex
	removed []string
}

func (f *fakeSessions) RemoveUser(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, userID)
}

var alice = &auth.User{ID: "user-1", Email: "alice@example.com"}

func TestDeleteHappyPath(t *testing.T) {
	notes, settings, admin, sessions := &fakeTable{}, &fakeTable{}, &fakeAdmin{}, &fakeSessions{}
	svc := NewService(notes, settings, admin, sessions)

	require.NoError(t, svc.Delete(context.Background(), alice, "DELETE"))
	assert.Equal(t, []string{"user-1"}, notes.deleted)
	assert.Equal(t, []string{"user-1"}, settings.deleted)
	assert.Equal(t, []string{"user-1"}, admin.deleted)
	assert.Equal(t, []string{"user-1"}, sessions.removed)
}

func TestDeleteToleratesMissingTables(t *testing.T) {
	missing := storage.Wrap("delete", &pq.Error{Code: "42P01"})
	admin := &fakeAdmin{}
	svc := NewService(&fakeTable{err: missing}, &fakeTable{err: errors.New("Could not find the table in the schema cache")}, admin, nil)

	require.NoError(t, svc.Delete(context.Background(), alice, "DELETE"))
	assert.Equal(t, []string{"user-1"}, admin.deleted)
}

func TestDeleteFailures(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc := NewService(&fakeTable{}, &fakeTable{}, &fakeAdmin{checkErr: ErrNotConfigured}, nil)
		assert.ErrorIs(t, svc.Delete(context.Background(), alice, "DELETE"), ErrNotConfigured)
	})

	t.Run("wrong confirmation", func(t *testing.T) {
		notes := &fakeTable{}
		svc := NewService(notes, &fakeTable{}, &fakeAdmin{}, nil)
		assert.ErrorIs(t, svc.Delete(context.Background(), alice, "delete"), ErrConfirmation)
		assert.Empty(t, notes.deleted)
	})

	t.Run("db error stops before auth delete", func(t *testing.T) {
		admin := &fakeAdmin{}
		svc := NewService(&fakeTable{err: errors.New("connection reset")}, &fakeTable{}, admin, nil)
		err := svc.Delete(context.Background(), alice, "DELETE")
		assert.EqualError(t, err, "DB delete failed for user data (user_notes): connection reset")
		assert.Empty(t, admin.deleted)
	})

	t.Run("auth delete error keeps sessions", func(t *testing.T) {
		sessions := &fakeSessions{}
		svc := NewService(&fakeTable{}, &fakeTable{}, &fakeAdmin{deleteErr: errors.New("User not found")}, sessions)
		err := svc.Delete(context.Background(), alice, "DELETE")
		assert.ErrorIs(t, err, ErrAuthDelete)
		assert.EqualError(t, err, "auth delete failed: User not found")
		assert.Empty(t, sessions.removed)
	})
}

type stubDeleter struct{ err error }

func (s stubDeleter) Delete(context.Context, *auth.User, string) error { return s.err }

func TestDeleteAccountHandler(t *testing.T) {
	tests := []struct {
		name   string
		method string
		user   *auth.User
		body   string
		err    error
		code   int
		want   string
	}{
		{"success", http.MethodPost, alice, `{"confirmation":"DELETE"}`, nil, http.StatusOK, `"success":true`},
		{"unauthenticated", http.MethodPost, nil, `{"confirmation":"DELETE"}`, nil, http.StatusUnauthorized, "Unauthorized"},
		{"bad body", http.MethodPost, alice, `{`, nil, http.StatusBadRequest, "Invalid request body."},
		{"confirmation", http.MethodPost, alice, `{}`, ErrConfirmation, http.StatusBadRequest, "Deletion confirmation is required"},
		{"auth delete", http.MethodPost, alice, `{"confirmation":"DELETE"}`, errors.New("auth delete failed: boom"), http.StatusInternalServerError, "Auth delete failed: boom"},
		{"wrong method", http.MethodGet, alice, ``, nil, http.StatusMethodNotAllowed, "Method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/account/delete", strings.NewReader(tt.body))
			if tt.user != nil {
				req = req.WithContext(auth.WithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			NewHandler(stubDeleter{err: tt.err}).DeleteAccount(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}
