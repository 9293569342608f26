package www

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/dratek/powerplan-go/config"
	"github.com/dratek/powerplan-go/coordinator"
	"github.com/dratek/powerplan-go/database"
	"github.com/gorilla/sessions"
)

// Planner is the coordinator surface the web layer consumes.
type Planner interface {
	Snapshot() *coordinator.Snapshot
	Refresh()
}

type Server struct {
	logger  *slog.Logger
	config  config.AppConfigApi
	db      *database.Database
	planner Planner
	store   *sessions.CookieStore
	hub     *Hub
	tm      *TemplateManager
}

//go:embed static
var embeddedStaticDir embed.FS

func StartServer(db *database.Database, planner Planner, config config.AppConfigApi) *Server {
	logger := slog.Default().With("module", "www")
	tm, err := NewTemplateManager(logger, config.WwwDir)
	if err != nil {
		logger.Error("template manager initialization error", slog.Any("error", err))
	}

	s := &Server{
		logger:  logger,
		config:  config,
		db:      db,
		planner: planner,
		store:   sessions.NewCookieStore([]byte(config.SessionSecret)),
		hub:     NewHub(logger),
		tm:      tm,
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	http.Handle("/", logReqMW(NewIndexHandler(
		logger.With(slog.String("handler", "index")),
		s.store,
		s.planner,
		s.tm)))

	http.Handle("/static/", http.StripPrefix("/static/", staticFilesHandler(config.WwwDir)))

	http.Handle("/rates", logReqMW(NewRatesHandler(
		logger.With(slog.String("handler", "rates")),
		s.planner)))

	http.Handle("/consumption", logReqMW(NewConsumptionHandler(
		logger.With(slog.String("handler", "consumption")),
		s.planner)))

	http.Handle("/schedule", logReqMW(NewScheduleHandler(
		logger.With(slog.String("handler", "schedule")),
		s.planner)))

	http.Handle("/summary", logReqMW(NewSummaryHandler(
		logger.With(slog.String("handler", "summary")),
		s.planner)))

	http.Handle("/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		s.db)))

	http.Handle("/refresh", logReqMW(NewRefreshHandler(
		logger.With(slog.String("handler", "refresh")),
		s.store,
		s.planner)))

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
	})

	return s
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Second * 2)
	defer ticker.Stop()

	var lastPushed time.Time

	for {
		select {
		case err := <-srvErrors:
			if err != nil {
				s.logger.Error("server error", slog.Any("error", err))
			}

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return

		case <-ticker.C:
			snap := s.planner.Snapshot()
			if snap == nil || snap.At.Equal(lastPushed) {
				continue
			}
			lastPushed = snap.At

			buf, err := json.Marshal(newSummary(snap))
			if err != nil {
				s.logger.Error("summary marshalling failed", slog.Any("error", err))
				continue
			}
			s.hub.Broadcast <- buf
		}
	}
}

func staticFilesHandler(extDir *string) http.Handler {
	if extDir != nil && *extDir != "" {
		staticDir := path.Join(*extDir, "static")
		if _, err := os.Stat(staticDir); err == nil {
			return http.FileServer(http.Dir(staticDir))
		}
	}

	fsys, err := fs.Sub(embeddedStaticDir, "static")
	if err != nil {
		log.Panic(err)
	}
	return http.FileServer(http.FS(fsys))
}
