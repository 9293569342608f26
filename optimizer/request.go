package optimizer

import (
	"sort"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/consumption"
	"github.com/dratek/powerplan-go/types"
)

// BatterySpec is the installation's configured battery envelope. Power
// figures are in kW, state of charge bounds in percent.
type BatterySpec struct {
	ChargePowerKw    float64
	DischargePowerKw float64
	SocMinPercent    float64
	SocMaxPercent    float64
	CapacityKwh      float64
	AmortizationCost float64
}

// BatteryState is what the battery currently reports, in percent. The
// ceiling is the highest state of charge seen over the trailing month.
type BatteryState struct {
	Soc     float64
	Ceiling float64
}

const minConsumptionKwh = 0.2

// BuildRequest assembles the optimizer request from the forward-looking
// slice of the rate series. The first consumption entry leans on the
// historical maximum (a household rarely exceeds its worst hour), later
// entries use the historical mean, all padded by 20%. The returned keys
// align 1:1 with the schedule rows of the response.
func BuildRequest(
	points []types.RatePoint,
	now blocks.DateBlock,
	production map[blocks.DateBlock]float64,
	series *consumption.Series,
	spec BatterySpec,
	state BatteryState,
) (Request, []blocks.DateBlock) {
	forward := make([]types.RatePoint, 0, len(points))
	for _, p := range points {
		if p.Block.Compare(now) >= 0 {
			forward = append(forward, p)
		}
	}
	sort.Slice(forward, func(i, j int) bool {
		return forward[i].Block.Compare(forward[j].Block) < 0
	})

	req := Request{
		Rate:        make([][2]float64, len(forward)),
		Production:  make([]float64, len(forward)),
		Consumption: make([]float64, len(forward)),
	}
	keys := make([]blocks.DateBlock, len(forward))

	for i, p := range forward {
		keys[i] = p.Block
		req.Rate[i] = [2]float64{p.Rates.Cost, 0}
		req.Production[i] = production[p.Block]

		var estimate float64
		if i == 0 {
			estimate = series.Stats[p.Block].Max
			if actual, ok := series.Today[p.Block]; ok && actual.Consumption > estimate {
				estimate = actual.Consumption
			}
		} else {
			estimate = series.Stats[p.Block].Mean
		}
		if estimate == 0 {
			estimate = minConsumptionKwh
		}
		req.Consumption[i] = estimate * 1.2
	}

	socMax := 100.0
	if state.Ceiling > 98 {
		socMax = spec.SocMaxPercent
	}
	req.Constraints = Constraints{
		Soc:            state.Soc / 100,
		ChargePower:    spec.ChargePowerKw / blocks.PerHour,
		DischargePower: spec.DischargePowerKw / blocks.PerHour,
		SocMin:         spec.SocMinPercent / 100,
		SocMax:         socMax / 100,
		Capacity:       spec.CapacityKwh,
		Amortization:   spec.AmortizationCost,
	}

	return req, keys
}
