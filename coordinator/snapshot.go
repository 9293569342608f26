package coordinator

import (
	"database/sql"
	"sort"
	"time"

	"github.com/dratek/powerplan-go/blocks"
	"github.com/dratek/powerplan-go/consumption"
	"github.com/dratek/powerplan-go/optimizer"
	"github.com/dratek/powerplan-go/types"
)

// Snapshot is the read side of the coordinator. It is immutable once
// published; consumers always observe a fully consistent cycle result.
type Snapshot struct {
	At        time.Time
	Available bool

	Current      blocks.DateBlock
	CurrentRates types.RateTriad
	Series       []types.RatePoint

	TodayMean float64
	// Rank of the current cost among today's distinct costs, ascending,
	// 1 is the cheapest block of the day.
	TodayRank int

	Consumption *consumption.Series
	Forecast    map[blocks.DateBlock]float64

	Schedule              []optimizer.ScheduleEntry
	PredictedCost         float64
	PredictedAmortization float64
	BatterySoc            sql.NullFloat64

	Curtail       bool
	Charge        bool
	Discharge     bool
	NextCharge    bool
	NextDischarge bool
}

func todayMeanAndRank(series []types.RatePoint, todayDate string, current types.RateTriad) (float64, int) {
	var costs []float64
	for _, p := range series {
		if p.Block.LocalDate() == todayDate {
			costs = append(costs, p.Rates.Cost)
		}
	}
	if len(costs) == 0 {
		return 0, 0
	}

	sum := 0.0
	distinct := make(map[float64]struct{}, len(costs))
	for _, c := range costs {
		sum += c
		distinct[c] = struct{}{}
	}

	ordered := make([]float64, 0, len(distinct))
	for c := range distinct {
		ordered = append(ordered, c)
	}
	sort.Float64s(ordered)

	rank := 0
	for i, c := range ordered {
		if c == current.Cost {
			rank = i + 1
			break
		}
	}

	return sum / float64(len(costs)), rank
}
