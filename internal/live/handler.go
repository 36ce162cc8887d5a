package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"newsnotes/pkg/logger"
)

type Searcher interface {
	Search(ctx context.Context, q string) ([]Stream, error)
}

type Handler struct {
	Streams Searcher
}

func NewHandler(s Searcher) *Handler {
	return &Handler{Streams: s}
}

// GetLiveNews handles /api/live-news?q=.
func (h *Handler) GetLiveNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	streams, err := h.Streams.Search(r.Context(), r.URL.Query().Get("q"))
	status := http.StatusOK
	var body interface{} = map[string]interface{}{"items": streams}
	switch {
	case errors.Is(err, ErrNoAPIKey):
		status = http.StatusInternalServerError
		body = map[string]string{"error": "Live news is not configured"}
	case err != nil:
		logger.Sugar.Errorf("Live news search failed: %v", err)
		status = http.StatusBadGateway
		body = map[string]string{"error": "Failed to load live streams"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Sugar.Errorf("Failed to encode live news: %v", err)
	}
}
