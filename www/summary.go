package www

import (
	"time"

	"github.com/dratek/powerplan-go/convert"
	"github.com/dratek/powerplan-go/coordinator"
)

// Summary is the live view of the current block, served by /summary and
// pushed over the websocket after every completed cycle.
type Summary struct {
	At        time.Time `json:"at"`
	Available bool      `json:"available"`

	Block        string  `json:"block,omitempty"`
	Cost         float64 `json:"cost"`
	Compensation float64 `json:"compensation"`
	Spot         float64 `json:"spot"`

	TodayMean float64 `json:"today_mean"`
	TodayRank int     `json:"today_rank"`

	TodayConsumption float64  `json:"today_consumption"`
	BatterySoc       *float64 `json:"battery_soc,omitempty"`

	PredictedCost         float64 `json:"predicted_cost"`
	PredictedAmortization float64 `json:"predicted_amortization"`

	Charge        bool `json:"charge"`
	Discharge     bool `json:"discharge"`
	Curtail       bool `json:"curtail"`
	NextCharge    bool `json:"next_charge"`
	NextDischarge bool `json:"next_discharge"`
}

func newSummary(snap *coordinator.Snapshot) Summary {
	if snap == nil {
		return Summary{}
	}

	s := Summary{At: snap.At, Available: snap.Available}
	if !snap.Available {
		return s
	}

	s.Block = snap.Current.IsoString()
	s.Cost = convert.FourDecimals(snap.CurrentRates.Cost)
	s.Compensation = convert.FourDecimals(snap.CurrentRates.Compensation)
	s.Spot = convert.FourDecimals(snap.CurrentRates.Spot)
	s.TodayMean = convert.FourDecimals(snap.TodayMean)
	s.TodayRank = snap.TodayRank
	s.PredictedCost = convert.TwoDecimals(snap.PredictedCost)
	s.PredictedAmortization = convert.TwoDecimals(snap.PredictedAmortization)
	s.Charge = snap.Charge
	s.Discharge = snap.Discharge
	s.Curtail = snap.Curtail
	s.NextCharge = snap.NextCharge
	s.NextDischarge = snap.NextDischarge

	if snap.Consumption != nil {
		s.TodayConsumption = snap.Consumption.TodayConsumption()
	}
	if snap.BatterySoc.Valid {
		soc := snap.BatterySoc.Float64
		s.BatterySoc = &soc
	}

	return s
}
