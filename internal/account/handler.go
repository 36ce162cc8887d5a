package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"unicode"
	"unicode/utf8"

	"newsnotes/internal/auth"
	"newsnotes/pkg/logger"
)

type Deleter interface {
	Delete(ctx context.Context, user *auth.User, confirmation string) error
}

type Handler struct {
	Service Deleter
}

func NewHandler(service Deleter) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	var body struct {
		Confirmation string `json:"confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body."})
		return
	}

	err := h.Service.Delete(r.Context(), user, body.Confirmation)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Account deleted successfully."})
	case errors.Is(err, ErrConfirmation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": sentence(err)})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": sentence(err)})
	}
}

// sentence capitalizes an error message for display.
func sentence(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode account response: %v", err)
	}
}
