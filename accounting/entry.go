package accounting

import (
	"github.com/shopspring/decimal"
)

// ActorEntry is the settlement of a single market participant within one
// clearing event.
type ActorEntry struct {
	// ActorID identifies the market participant.
	ActorID string `json:"actor_id"`

	// EnergyBought is the energy in kWh the actor bought through its bids.
	EnergyBought decimal.Decimal `json:"energy_bought_kwh"`

	// EnergySold is the energy in kWh the actor sold through its asks.
	EnergySold decimal.Decimal `json:"energy_sold_kwh"`

	// EuroPaid is the amount the actor pays for the energy it bought.
	EuroPaid decimal.Decimal `json:"euro_paid"`

	// EuroReceived is the amount the actor receives for the energy it
	// sold.
	EuroReceived decimal.Decimal `json:"euro_received"`

	// GridFeesPaid is the amount the actor pays for transporting the
	// energy it bought between grid clusters.
	GridFeesPaid decimal.Decimal `json:"grid_fees_paid"`

	// UnmatchedBidEnergy is the energy the actor wanted to buy but that
	// couldn't be matched.
	UnmatchedBidEnergy decimal.Decimal `json:"unmatched_bid_kwh"`

	// UnmatchedAskEnergy is the energy the actor offered but that
	// couldn't be matched.
	UnmatchedAskEnergy decimal.Decimal `json:"unmatched_ask_kwh"`
}

// NetEuro is the net amount the actor receives (or pays if negative) as a
// result of the clearing event, including grid fees.
func (e *ActorEntry) NetEuro() decimal.Decimal {
	return e.EuroReceived.Sub(e.EuroPaid).Sub(e.GridFeesPaid)
}

// NetEnergy is the net energy in kWh the actor receives (or delivers if
// negative).
func (e *ActorEntry) NetEnergy() decimal.Decimal {
	return e.EnergyBought.Sub(e.EnergySold)
}
