package router

import (
	"database/sql"
	"net/http"

	"newsnotes/internal/account"
	"newsnotes/internal/auth"
	"newsnotes/internal/health"
	"newsnotes/internal/live"
	"newsnotes/internal/news"
	noteHandler "newsnotes/internal/note"
	"newsnotes/internal/note/repository"
	"newsnotes/internal/note/service"
	"newsnotes/internal/settings"
	"newsnotes/middleware"
	"newsnotes/pkg/metrics"
	"newsnotes/socket"
)

// Deps are the long-lived collaborators the routes are built from.
type Deps struct {
	DB             *sql.DB
	Hub            *socket.Hub
	Auth           *middleware.Authenticator
	Metrics        *metrics.Metrics
	News           news.Fetcher
	Images         http.Handler
	Live           live.Searcher
	Admin          account.Admin
	AllowedOrigins []string
}

func Setup(d Deps) http.Handler {
	mux := http.NewServeMux()
	handle := func(path string, h http.Handler) {
		mux.Handle(path, d.Metrics.Middleware(path, h))
	}

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFrom(r.Context())
		socket.ServeWs(d.Hub, w, r, user)
	})
	handle("/ws", d.Auth.Require(wsHandler))

	// Notes. The store itself rejects anonymous callers.
	noteRepo := repository.NewNoteRepository(d.DB)
	noteService := service.NewNoteService(noteRepo, auth.ContextIdentity{}, d.Hub, d.Metrics)
	notes := noteHandler.NewNoteHandler(noteService)
	optional := d.Auth.Optional

	handle("/api/notes", optional(http.HandlerFunc(notes.GetNotes)))
	handle("/api/notes/create", optional(http.HandlerFunc(notes.CreateNote)))
	handle("/api/notes/update", optional(http.HandlerFunc(notes.UpdateNote)))
	handle("/api/notes/delete", optional(http.HandlerFunc(notes.DeleteNote)))

	// Account and settings
	settingsRepo := settings.NewRepository(d.DB)
	accountService := account.NewService(noteRepo, settingsRepo, d.Admin, d.Hub)
	handle("/api/account/delete", d.Auth.Require(http.HandlerFunc(account.NewHandler(accountService).DeleteAccount)))
	handle("/api/settings/appearance", d.Auth.Require(http.HandlerFunc(settings.NewHandler(settingsRepo).Appearance)))

	// Public content
	handle("/api/news", http.HandlerFunc(news.NewHandler(d.News).GetNews))
	handle("/api/image-proxy", d.Images)
	handle("/api/live-news", http.HandlerFunc(live.NewHandler(d.Live).GetLiveNews))
	handle("/api/health", health.NewHandler(d.DB))

	mux.Handle("/metrics", d.Metrics.Handler())

	return middleware.CORSMiddleware(d.AllowedOrigins, mux)
}
