package www

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

// NewRefreshHandler schedules a planning refresh. Only browsers holding
// the session cookie issued by the live page may trigger it.
func NewRefreshHandler(logger *slog.Logger, store *sessions.CookieStore, planner Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		session, err := store.Get(r, sessionName)
		if err != nil || session.IsNew {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if seen, ok := session.Values["seen"].(bool); !ok || !seen {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		logger.Info("refresh requested", slog.String("remoteAddr", r.RemoteAddr))
		planner.Refresh()
		w.WriteHeader(http.StatusAccepted)
	}
}
