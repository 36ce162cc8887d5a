package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"newsnotes/config/database"
	"newsnotes/internal/account"
	"newsnotes/internal/live"
	"newsnotes/internal/news"
	"newsnotes/middleware"
	"newsnotes/pkg/logger"
	"newsnotes/pkg/metrics"
	"newsnotes/router"
	"newsnotes/socket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP listen port")
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on start")
	if err := v.BindPFlag("PORT", serveCmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if !skipMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	hub := socket.NewHub()
	hub.Gauge = m
	hub.AllowedOrigins = cfg.CORSAllowedOrigins
	go hub.Run()
	defer hub.Stop()

	liveClient, err := live.NewClient(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		return err
	}
	admin := account.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	if err := admin.Check(); err != nil {
		logger.Sugar.Warnf("Account deletion disabled: %v", err)
	}

	handler := router.Setup(router.Deps{
		DB:             db,
		Hub:            hub,
		Auth:           middleware.NewAuthenticator(cfg.SupabaseJWTSecret),
		Metrics:        m,
		News:           news.NewClient(cfg.NewsAPIBaseURL, cfg.NewsAPIKey, cfg.NewsCacheTTL),
		Images:         news.NewImageProxy(),
		Live:           liveClient,
		Admin:          admin,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar.Infof("Go Backend listening on :%s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
