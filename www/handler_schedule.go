package www

import (
	"log/slog"
	"net/http"

	"github.com/dratek/powerplan-go/convert"
)

type scheduleEntryView struct {
	Block         string  `json:"block"`
	Soc           float64 `json:"soc"`
	Charge        float64 `json:"charge"`
	Discharge     float64 `json:"discharge"`
	ChargeFlag    bool    `json:"charge_flag"`
	DischargeFlag bool    `json:"discharge_flag"`
	CurtailFlag   bool    `json:"curtail_flag"`
}

func NewScheduleHandler(logger *slog.Logger, planner Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap := planner.Snapshot()
		if snap == nil || !snap.Available {
			http.Error(w, "No schedule yet", http.StatusServiceUnavailable)
			return
		}

		entries := make([]scheduleEntryView, 0, len(snap.Schedule))
		for _, e := range snap.Schedule {
			entries = append(entries, scheduleEntryView{
				Block:         e.Block.IsoString(),
				Soc:           convert.FourDecimals(e.Soc),
				Charge:        convert.FourDecimals(e.Charge),
				Discharge:     convert.FourDecimals(e.Discharge),
				ChargeFlag:    e.ChargeFlag,
				DischargeFlag: e.DischargeFlag,
				CurtailFlag:   e.CurtailFlag,
			})
		}

		writeJSON(logger, w, struct {
			PredictedCost         float64             `json:"predicted_cost"`
			PredictedAmortization float64             `json:"predicted_amortization"`
			Entries               []scheduleEntryView `json:"entries"`
		}{
			PredictedCost:         convert.TwoDecimals(snap.PredictedCost),
			PredictedAmortization: convert.TwoDecimals(snap.PredictedAmortization),
			Entries:               entries,
		})
	}
}
