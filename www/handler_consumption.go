package www

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/dratek/powerplan-go/convert"
)

type actualView struct {
	Block        string   `json:"block"`
	Consumption  float64  `json:"consumption"`
	Production   float64  `json:"production"`
	Imported     float64  `json:"imported"`
	Exported     float64  `json:"exported"`
	Cost         *float64 `json:"cost,omitempty"`
	Compensation *float64 `json:"compensation,omitempty"`
}

type expectedView struct {
	Block string  `json:"block"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

func NewConsumptionHandler(logger *slog.Logger, planner Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap := planner.Snapshot()
		if snap == nil || !snap.Available || snap.Consumption == nil {
			http.Error(w, "No consumption data yet", http.StatusServiceUnavailable)
			return
		}

		series := snap.Consumption

		actuals := make([]actualView, 0, len(series.Today))
		for b, a := range series.Today {
			v := actualView{
				Block:       b.IsoString(),
				Consumption: a.Consumption,
				Production:  a.Production,
				Imported:    a.Imported,
				Exported:    a.Exported,
			}
			if a.Cost.Valid {
				c := a.Cost.Float64
				v.Cost = &c
			}
			if a.Compensation.Valid {
				c := a.Compensation.Float64
				v.Compensation = &c
			}
			actuals = append(actuals, v)
		}
		sort.Slice(actuals, func(i, j int) bool { return actuals[i].Block < actuals[j].Block })

		expected := make([]expectedView, 0, len(series.Stats))
		for b, st := range series.Stats {
			expected = append(expected, expectedView{
				Block: b.IsoString(),
				Mean:  convert.FourDecimals(st.Mean),
				Min:   convert.FourDecimals(st.Min),
				Max:   convert.FourDecimals(st.Max),
			})
		}
		sort.Slice(expected, func(i, j int) bool { return expected[i].Block < expected[j].Block })

		payload := struct {
			TodayKwh   float64        `json:"today_kwh"`
			Actuals    []actualView   `json:"actuals"`
			Expected   []expectedView `json:"expected"`
			BatterySoc *float64       `json:"battery_soc,omitempty"`
			SocCeiling *float64       `json:"soc_ceiling,omitempty"`
		}{
			TodayKwh: series.TodayConsumption(),
			Actuals:  actuals,
			Expected: expected,
		}
		if series.BatterySoc.Valid {
			soc := series.BatterySoc.Float64
			payload.BatterySoc = &soc
		}
		if series.SocCeiling.Valid {
			ceiling := series.SocCeiling.Float64
			payload.SocCeiling = &ceiling
		}

		writeJSON(logger, w, payload)
	}
}
