package metrics

import (
	"github.com/simplyr/simplyr/matching"
	"github.com/simplyr/simplyr/order"
)

// BatchMetric is the struct used for generating insights about a cleared
// batch.
type BatchMetric struct {
	// NumMatches is the number of matches in the batch.
	NumMatches int

	// TotalEnergy is the amount of energy in kWh traded in the batch.
	TotalEnergy float64

	// MedianPrice is the median price in EUR/kWh of all matches in the
	// batch.
	MedianPrice float64

	// MedianMatchEnergy is the median energy in kWh of all matches in the
	// batch.
	MedianMatchEnergy float64

	// MaxPrice is the highest price in EUR/kWh paid in the batch.
	MaxPrice float64

	// MinPrice is the lowest price in EUR/kWh paid in the batch.
	MinPrice float64
}

// OrderMetric is the struct used for generating insights about the orders
// of a batch.
type OrderMetric struct {
	// NumAsks is the number of asks in the given orders.
	NumAsks int64

	// NumBids is the number of bids in the given orders.
	NumBids int64

	// AskVolume is the total energy in kWh offered by all asks.
	AskVolume float64

	// BidVolume is the total energy in kWh requested by all bids.
	BidVolume float64

	// MedianAskPrice is the median limit price of all asks.
	MedianAskPrice float64

	// MedianBidPrice is the median limit price of all bids.
	MedianBidPrice float64
}

// Manager interface for obtaining metrics.
type Manager interface {
	// GenerateOrderMetric calculates the relevant OrderMetric for a batch
	// of orders.
	GenerateOrderMetric(input *order.MarketInput) (*OrderMetric, error)

	// GenerateBatchMetrics calculates the relevant BatchMetric for the
	// matches of a cleared batch.
	GenerateBatchMetrics(matches []matching.Match) (*BatchMetric, error)
}
