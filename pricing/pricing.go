package pricing

import (
	"github.com/dratek/powerplan-go/types"
)

// VAT on electricity.
const VAT = 0.21

// Fees are the supplier's per-kWh margins on top of the wholesale
// price.
type Fees struct {
	Cost         float64 // added to the purchase price
	Compensation float64 // subtracted from the export credit
}

// FinalPrice combines the regulated distribution fee, the wholesale
// base price and the supplier fees into the effective rate triad.
// Strictly monotonic in basePrice for fixed fees and VAT.
func FinalPrice(distributionFee, basePrice float64, fees Fees) types.RateTriad {
	return types.RateTriad{
		Cost:         (distributionFee + basePrice + fees.Cost) * (1 + VAT),
		Compensation: basePrice - fees.Compensation,
		Spot:         basePrice * (1 + VAT),
	}
}
