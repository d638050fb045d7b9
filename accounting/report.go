package accounting

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simplyr/simplyr/matching"
	"github.com/simplyr/simplyr/order"
)

var (
	// ErrUnknownOrder is returned if a match references an order that is
	// not part of the cleared input.
	ErrUnknownOrder = errors.New("match references unknown order")

	// ErrSideMismatch is returned if a match references an order on the
	// wrong side of the book.
	ErrSideMismatch = errors.New("match references order of wrong type")
)

// Report is the settlement of a single clearing event.
type Report struct {
	// TimeSlot is the time slot of the cleared orders. It is empty if the
	// input spanned more than one time slot.
	TimeSlot string `json:"time_slot,omitempty"`

	// NumMatches is the number of matches of the clearing event.
	NumMatches int `json:"num_matches"`

	// Entries holds the settlement of every actor that submitted at least
	// one order, sorted by actor ID.
	Entries []*ActorEntry `json:"entries"`

	// TotalEnergy is the total matched energy in kWh.
	TotalEnergy decimal.Decimal `json:"total_energy_kwh"`

	// TotalValue is the total amount in EUR paid by buyers to sellers.
	TotalValue decimal.Decimal `json:"total_value_euro"`

	// TotalGridFees is the total amount in EUR of grid fees owed by
	// buyers.
	TotalGridFees decimal.Decimal `json:"total_grid_fees_euro"`

	// UnmatchedBidEnergy is the bid energy in kWh left unmatched.
	UnmatchedBidEnergy decimal.Decimal `json:"unmatched_bid_kwh"`

	// UnmatchedAskEnergy is the ask energy in kWh left unmatched.
	UnmatchedAskEnergy decimal.Decimal `json:"unmatched_ask_kwh"`
}

// AveragePrice returns the volume weighted average price of the clearing
// event in EUR/kWh, or zero if nothing was matched.
func (r *Report) AveragePrice() decimal.Decimal {
	if r.TotalEnergy.IsZero() {
		return decimal.Zero
	}

	return r.TotalValue.DivRound(r.TotalEnergy, 6)
}

// Entry returns the settlement of the given actor, if it took part in the
// clearing event.
func (r *Report) Entry(actorID string) (*ActorEntry, bool) {
	i := sort.Search(len(r.Entries), func(i int) bool {
		return r.Entries[i].ActorID >= actorID
	})
	if i < len(r.Entries) && r.Entries[i].ActorID == actorID {
		return r.Entries[i], true
	}

	return nil, false
}

// CreateReport settles the given match set that resulted from clearing the
// given input. Every match is paid at its own price, and if grid fees are
// configured the buyer additionally owes the fee for moving the energy from
// the ask's cluster to the bid's cluster.
func CreateReport(cfg *Config, input *order.MarketInput,
	matchSet *matching.MatchSet) (*Report, error) {

	orders := make(map[uint64]*order.Order, len(input.Orders))
	entries := make(map[string]*ActorEntry)
	entryFor := func(actorID string) *ActorEntry {
		e, ok := entries[actorID]
		if !ok {
			e = &ActorEntry{ActorID: actorID}
			entries[actorID] = e
		}
		return e
	}

	for i := range input.Orders {
		o := &input.Orders[i]
		orders[o.ID] = o
		entryFor(o.ActorID)
	}

	report := &Report{
		NumMatches: len(matchSet.Matches),
	}
	if slot, ok := input.TimeSlot(); ok {
		report.TimeSlot = slot
	}

	for _, m := range matchSet.Matches {
		bid, err := lookupOrder(orders, m.BidID, order.TypeBid)
		if err != nil {
			return nil, err
		}
		ask, err := lookupOrder(orders, m.AskID, order.TypeAsk)
		if err != nil {
			return nil, err
		}

		energy := decimal.NewFromFloat(m.EnergyKWh)
		value := energy.Mul(decimal.NewFromFloat(m.PriceEuroPerKWh))

		gridFee, err := gridFeeFor(cfg.GridFees, ask, bid, energy)
		if err != nil {
			return nil, fmt.Errorf("unable to charge grid fee for "+
				"match %v: %w", m, err)
		}

		buyer := entryFor(bid.ActorID)
		buyer.EnergyBought = buyer.EnergyBought.Add(energy)
		buyer.EuroPaid = buyer.EuroPaid.Add(value)
		buyer.GridFeesPaid = buyer.GridFeesPaid.Add(gridFee)

		seller := entryFor(ask.ActorID)
		seller.EnergySold = seller.EnergySold.Add(energy)
		seller.EuroReceived = seller.EuroReceived.Add(value)

		report.TotalEnergy = report.TotalEnergy.Add(energy)
		report.TotalValue = report.TotalValue.Add(value)
		report.TotalGridFees = report.TotalGridFees.Add(gridFee)
	}

	for _, r := range matchSet.UnmatchedBids {
		energy := decimal.NewFromFloat(r.EnergyKWh)
		e := entryFor(r.Order.ActorID)
		e.UnmatchedBidEnergy = e.UnmatchedBidEnergy.Add(energy)
		report.UnmatchedBidEnergy = report.UnmatchedBidEnergy.Add(energy)
	}
	for _, r := range matchSet.UnmatchedAsks {
		energy := decimal.NewFromFloat(r.EnergyKWh)
		e := entryFor(r.Order.ActorID)
		e.UnmatchedAskEnergy = e.UnmatchedAskEnergy.Add(energy)
		report.UnmatchedAskEnergy = report.UnmatchedAskEnergy.Add(energy)
	}

	report.Entries = make([]*ActorEntry, 0, len(entries))
	for _, e := range entries {
		report.Entries = append(report.Entries, e)
	}
	sort.Slice(report.Entries, func(i, j int) bool {
		return report.Entries[i].ActorID < report.Entries[j].ActorID
	})

	log.Debugf("Settled %d matches between %d actors: energy=%v kWh, "+
		"value=%v EUR, grid_fees=%v EUR", report.NumMatches,
		len(report.Entries), report.TotalEnergy, report.TotalValue,
		report.TotalGridFees)

	return report, nil
}

// lookupOrder returns the order with the given ID and makes sure it is of the
// expected type.
func lookupOrder(orders map[uint64]*order.Order, id uint64,
	t order.Type) (*order.Order, error) {

	o, ok := orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if o.Type != t {
		return nil, fmt.Errorf("%w: order %d is %v, expected %v",
			ErrSideMismatch, id, o.Type, t)
	}

	return o, nil
}

// gridFeeFor returns the grid fee owed for moving the given energy from the
// ask's cluster to the bid's cluster. No fee is charged if there is no fee
// matrix or either order doesn't state its cluster.
func gridFeeFor(fees *matching.GridFeeMatrix, ask, bid *order.Order,
	energy decimal.Decimal) (decimal.Decimal, error) {

	if fees == nil || ask.ClusterIndex == nil || bid.ClusterIndex == nil {
		return decimal.Zero, nil
	}

	fee, err := fees.Fee(*ask.ClusterIndex, *bid.ClusterIndex)
	if err != nil {
		return decimal.Zero, err
	}

	return energy.Mul(decimal.NewFromFloat(fee)), nil
}
