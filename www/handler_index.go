package www

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const sessionName = "powerplan"

// NewIndexHandler serves the live page and issues the session cookie
// that the refresh endpoint requires.
func NewIndexHandler(logger *slog.Logger, store *sessions.CookieStore, planner Planner, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		session, _ := store.Get(r, sessionName)
		if session.IsNew {
			session.Values["seen"] = true
			if err := session.Save(r, w); err != nil {
				logger.Warn("session save failed", slog.Any("error", err))
			}
		}

		w.Header().Set("Content-Type", "text/html")
		if err := tm.ExecuteToWriter("index.html", newSummary(planner.Snapshot()), &w); err != nil {
			logger.Error("handling index request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
