package metrics

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/simplyr/simplyr/matching"
	"github.com/simplyr/simplyr/order"
)

// manager is the default implementation of the Manager interface. It holds
// no state, so it can be shared freely.
type manager struct{}

// NewManager returns a new metrics manager.
func NewManager() Manager {
	return &manager{}
}

// GenerateOrderMetric iterates through the orders of a batch and sums up the
// volume as well as the median limit price per side.
func (m *manager) GenerateOrderMetric(
	input *order.MarketInput) (*OrderMetric, error) {

	var (
		metric               OrderMetric
		askPrices, bidPrices []float64
	)
	for i := range input.Orders {
		o := &input.Orders[i]

		switch o.Type {
		case order.TypeAsk:
			metric.NumAsks++
			metric.AskVolume += o.EnergyKWh
			askPrices = append(askPrices, o.PriceEuroPerKWh)

		case order.TypeBid:
			metric.NumBids++
			metric.BidVolume += o.EnergyKWh
			bidPrices = append(bidPrices, o.PriceEuroPerKWh)
		}
	}

	var err error
	if len(askPrices) > 0 {
		metric.MedianAskPrice, err = stats.Median(askPrices)
		if err != nil {
			return nil, fmt.Errorf("error generating median ask "+
				"price: %v", err)
		}
	}
	if len(bidPrices) > 0 {
		metric.MedianBidPrice, err = stats.Median(bidPrices)
		if err != nil {
			return nil, fmt.Errorf("error generating median bid "+
				"price: %v", err)
		}
	}

	return &metric, nil
}

// PricesFromMatches returns the price of every match.
func PricesFromMatches(matches []matching.Match) []float64 {
	prices := make([]float64, len(matches))
	for idx, match := range matches {
		prices[idx] = match.PriceEuroPerKWh
	}
	return prices
}

// EnergiesFromMatches returns the traded energy of every match.
func EnergiesFromMatches(matches []matching.Match) []float64 {
	energies := make([]float64, len(matches))
	for idx, match := range matches {
		energies[idx] = match.EnergyKWh
	}
	return energies
}

// GenerateBatchMetrics iterates through the matches of a cleared batch and
// returns a pointer to a batch metric containing the relevant data.
func (m *manager) GenerateBatchMetrics(
	matches []matching.Match) (*BatchMetric, error) {

	if len(matches) == 0 {
		return &BatchMetric{}, nil
	}

	prices := PricesFromMatches(matches)
	energies := EnergiesFromMatches(matches)

	totalEnergy, err := stats.Sum(energies)
	if err != nil {
		return nil, fmt.Errorf("error generating total energy: %v", err)
	}
	medianPrice, err := stats.Median(prices)
	if err != nil {
		return nil, fmt.Errorf("error generating median price: %v", err)
	}
	medianEnergy, err := stats.Median(energies)
	if err != nil {
		return nil, fmt.Errorf("error generating median match "+
			"energy: %v", err)
	}
	maxPrice, err := stats.Max(prices)
	if err != nil {
		return nil, fmt.Errorf("error generating max price: %v", err)
	}
	minPrice, err := stats.Min(prices)
	if err != nil {
		return nil, fmt.Errorf("error generating min price: %v", err)
	}

	return &BatchMetric{
		NumMatches:        len(matches),
		TotalEnergy:       totalEnergy,
		MedianPrice:       medianPrice,
		MedianMatchEnergy: medianEnergy,
		MaxPrice:          maxPrice,
		MinPrice:          minPrice,
	}, nil
}
