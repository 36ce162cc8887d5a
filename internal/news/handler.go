package news

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"newsnotes/pkg/logger"
)

type Fetcher interface {
	Fetch(ctx context.Context, q Query) (json.RawMessage, error)
}

type Handler struct {
	News Fetcher
}

func NewHandler(news Fetcher) *Handler {
	return &Handler{News: news}
}

// GetNews handles /api/news?q=&date= and /api/news?category=&country=.
func (h *Handler) GetNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	doc, err := h.News.Fetch(r.Context(), Query{
		Q:        params.Get("q"),
		Date:     params.Get("date"),
		Category: params.Get("category"),
		Country:  params.Get("country"),
	})

	var upstream *UpstreamError
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	case errors.Is(err, ErrNoAPIKey):
		writeError(w, http.StatusInternalServerError, "News service is not configured")
	case errors.As(err, &upstream):
		logger.Sugar.Warnf("News upstream error: %v", err)
		writeError(w, http.StatusBadGateway, upstream.Message)
	default:
		logger.Sugar.Errorf("News fetch failed: %v", err)
		writeError(w, http.StatusBadGateway, "Failed to fetch news")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": msg})
}
