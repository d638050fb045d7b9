package matching

import "math"

const (
	// DefaultEnergyEpsilon is the smallest energy amount in kWh that is
	// still considered for a match. Orders with less remaining energy are
	// treated as exhausted.
	DefaultEnergyEpsilon = 0.001

	// energyScale is the factor that turns kWh into the integer number of
	// thousandths that emitted energy amounts are rounded to.
	energyScale = 1000
)

// RoundEnergy rounds the given energy amount to three decimal places, with
// halves rounded away from zero.
func RoundEnergy(kwh float64) float64 {
	return math.Round(kwh*energyScale) / energyScale
}

// comparePrices is a total order over prices: NaN compares greater than any
// number and equal to itself, so sorting never depends on the position of an
// invalid price.
func comparePrices(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0

	case aNaN:
		return 1

	case bNaN:
		return -1

	case a < b:
		return -1

	case a > b:
		return 1

	default:
		return 0
	}
}
