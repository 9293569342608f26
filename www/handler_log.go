package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dratek/powerplan-go/database"
)

type logEntryView struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs,omitempty"`
}

func NewLogHandler(logger *slog.Logger, db *database.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		page := intOrDefault(r.URL, "page", 1)
		pageSize := intOrDefault(r.URL, "pageSize", 25)

		entries, err := db.GetLogEntries(r.Context(), slog.LevelDebug, page, pageSize)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		views := make([]logEntryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, logEntryView{
				Timestamp: e.Timestamp,
				Level:     slog.Level(e.Level).String(),
				Message:   e.Message,
				Attrs:     e.Attrs,
			})
		}

		writeJSON(logger, w, struct {
			Page     int            `json:"page"`
			PageSize int            `json:"page_size"`
			Entries  []logEntryView `json:"entries"`
		}{
			Page:     page,
			PageSize: pageSize,
			Entries:  views,
		})
	}
}
