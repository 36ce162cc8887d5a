// Package health reports whether the database is reachable.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"newsnotes/pkg/logger"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	DB      Pinger
	Timeout time.Duration
	Now     func() time.Time
}

func NewHandler(db Pinger) *Handler {
	return &Handler{DB: db, Timeout: 5 * time.Second, Now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	status := http.StatusOK
	body := map[string]interface{}{
		"status":    "success",
		"connected": true,
		"message":   "Database connection is active",
		"timestamp": h.Now().UTC().Format(time.RFC3339),
	}
	if err := h.DB.PingContext(ctx); err != nil {
		logger.Sugar.Errorf("Health check failed: %v", err)
		status = http.StatusInternalServerError
		body["status"] = "error"
		body["connected"] = false
		body["message"] = "Failed to connect to database"
		body["error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
