package www

import (
	"log/slog"
	"net/http"
)

func NewSummaryHandler(logger *slog.Logger, planner Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(logger, w, newSummary(planner.Snapshot()))
	}
}
