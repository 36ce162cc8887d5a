package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"newsnotes/internal/auth"
	"newsnotes/internal/storage"
	"newsnotes/pkg/logger"
)

type Store interface {
	GetAppearance(ctx context.Context, userID string) ([]byte, error)
	UpsertAppearance(ctx context.Context, userID string, a Appearance, now time.Time) error
}

type Handler struct {
	Store Store
	Now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// Appearance serves GET (read, defaults when nothing is stored) and PUT
// (validate and upsert).
func (h *Handler) Appearance(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, user)
	case http.MethodPut:
		h.put(w, r, user)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, user *auth.User) {
	raw, err := h.Store.GetAppearance(r.Context(), user.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) && !storage.IsRelationMissing(err) {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, Merge(raw))
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request, user *auth.User) {
	a := Defaults()
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := a.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Store.UpsertAppearance(r.Context(), user.ID, a, h.Now()); err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, a)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode settings: %v", err)
	}
}
