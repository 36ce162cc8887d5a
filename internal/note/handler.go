package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"newsnotes/internal/note/model"
	"newsnotes/internal/note/service"
	"newsnotes/pkg/logger"
)

// NoteStore is the subset of the note service the handlers call.
type NoteStore interface {
	SaveNote(ctx context.Context, req model.SaveNoteRequest) (*model.Note, error)
	GetUserNotes(ctx context.Context) ([]model.Note, error)
	UpdateNote(ctx context.Context, id, content string) error
	DeleteNote(ctx context.Context, id string) error
}

type NoteHandler struct {
	Service NoteStore
}

func NewNoteHandler(service NoteStore) *NoteHandler {
	return &NoteHandler{Service: service}
}

func (h *NoteHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	notes, err := h.Service.GetUserNotes(r.Context())
	if err != nil {
		writeServiceError(w, "Error fetching notes", err)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.SaveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	req.ArticleTitle = strings.TrimSpace(req.ArticleTitle)
	if req.Content == "" {
		http.Error(w, "Please write something before saving.", http.StatusBadRequest)
		return
	}
	if req.ArticleTitle == "" {
		http.Error(w, "Article title is required", http.StatusBadRequest)
		return
	}
	if req.ArticleSlug == "" {
		req.ArticleSlug = model.Slugify(req.ArticleTitle)
	}

	note, err := h.Service.SaveNote(r.Context(), req)
	if err != nil {
		writeServiceError(w, "Unable to save note", err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	noteID := r.URL.Query().Get("noteId")
	if noteID == "" {
		http.Error(w, "Missing noteId parameter", http.StatusBadRequest)
		return
	}

	var req model.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		http.Error(w, "Content cannot be empty", http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdateNote(r.Context(), noteID, req.Content); err != nil {
		writeServiceError(w, "Unable to update note", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Note updated successfully"))
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	noteID := r.URL.Query().Get("noteId")
	if noteID == "" {
		http.Error(w, "Missing noteId parameter", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteNote(r.Context(), noteID); err != nil {
		writeServiceError(w, "Unable to delete note", err)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Note deleted successfully"))
}

func writeServiceError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, service.ErrUnauthenticated) {
		http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
		return
	}
	logger.Sugar.Errorf("Handler: %s: %v", msg, err)
	http.Error(w, msg+": "+err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}
