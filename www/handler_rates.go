package www

import (
	"log/slog"
	"net/http"

	"github.com/dratek/powerplan-go/convert"
)

type ratePointView struct {
	Block        string  `json:"block"`
	Cost         float64 `json:"cost"`
	Compensation float64 `json:"compensation"`
	Spot         float64 `json:"spot"`
}

func NewRatesHandler(logger *slog.Logger, planner Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap := planner.Snapshot()
		if snap == nil || !snap.Available {
			http.Error(w, "No prices yet", http.StatusServiceUnavailable)
			return
		}

		points := make([]ratePointView, 0, len(snap.Series))
		for _, p := range snap.Series {
			points = append(points, ratePointView{
				Block:        p.Block.IsoString(),
				Cost:         convert.FourDecimals(p.Rates.Cost),
				Compensation: convert.FourDecimals(p.Rates.Compensation),
				Spot:         convert.FourDecimals(p.Rates.Spot),
			})
		}

		writeJSON(logger, w, struct {
			TodayMean float64         `json:"today_mean"`
			Points    []ratePointView `json:"points"`
		}{
			TodayMean: convert.FourDecimals(snap.TodayMean),
			Points:    points,
		})
	}
}
