package matching

import (
	"encoding/json"

	"github.com/simplyr/simplyr/order"
)

// FulfillType is an enum-like variable that expresses the "nature" of a match.
// In the system we accept partial matches, so we need to be able to express
// the two types of partial matches (bid vs ask).
type FulfillType uint8

const (
	// TotalFulfill indicates that both the ask and bid can be fully
	// consumed during this matching event.
	TotalFulfill FulfillType = iota

	// PartialAskFulfill indicates that the bid was fully consumed, but
	// there's a remaining amount unfilled in the target ask.
	PartialAskFulfill

	// PartialBidFulfill indicates that the ask was fully consumed, but
	// there's a remaining amount unfilled in the target bid.
	PartialBidFulfill
)

// String returns a human readable name of the fulfill type.
func (f FulfillType) String() string {
	switch f {
	case TotalFulfill:
		return "TotalFulfill"

	case PartialAskFulfill:
		return "PartialAskFulfill"

	case PartialBidFulfill:
		return "PartialBidFulfill"

	default:
		return "UnknownFulfill"
	}
}

// PriceQuote describes a potential match between a bid and an ask at a given
// point in time during match making.
type PriceQuote struct {
	// MatchingPrice is the price the two orders matched at. Under the
	// pay-as-bid rule this is always the bid's price.
	MatchingPrice float64

	// EnergyMatched is the unrounded amount of energy in kWh that is
	// traded by this quote.
	EnergyMatched float64

	// EnergyUnmatched is the energy that remains unfilled in the order
	// that wasn't fully consumed by this quote.
	EnergyUnmatched float64

	// Type is the type of fulfil possible with this price quote.
	Type FulfillType
}

// NullQuote is a special price quote which signals that the given bid and
// ask can't be matched.
var NullQuote PriceQuote

// Candidate is an order taking part in a single match making attempt along
// with its energy that is still unfilled.
type Candidate struct {
	// Order is a private copy of the submitted order.
	Order order.Order

	// Seq is the position of the order in the submitted batch. It breaks
	// ties between orders of equal price.
	Seq int

	// Remaining is the unfilled energy of the order in kWh. It starts at
	// the order's full energy and shrinks with every match.
	Remaining float64
}

// newCandidate creates a candidate for the given order, working on a copy.
func newCandidate(o *order.Order, seq int) *Candidate {
	return &Candidate{
		Order:     o.Copy(),
		Seq:       seq,
		Remaining: o.EnergyKWh,
	}
}

// Match is one unit of trade between a bid and an ask.
type Match struct {
	// BidID is the identifier of the matched bid.
	BidID uint64 `json:"bid_id"`

	// AskID is the identifier of the matched ask.
	AskID uint64 `json:"ask_id"`

	// EnergyKWh is the traded energy, rounded to three decimal places.
	EnergyKWh float64 `json:"energy_kwh"`

	// PriceEuroPerKWh is the traded unit price, which is the bid's price.
	PriceEuroPerKWh float64 `json:"price_euro_per_kwh"`
}

// MarketOutput contains all matches of one clearing event in the order they
// were generated.
type MarketOutput struct {
	Matches []Match `json:"matches"`
}

// MarshalJSON encodes the output, using an empty list rather than null if
// there are no matches.
func (m MarketOutput) MarshalJSON() ([]byte, error) {
	type plain MarketOutput
	if m.Matches == nil {
		m.Matches = []Match{}
	}

	return json.Marshal(plain(m))
}

// TotalEnergy returns the sum of the traded energy of all matches.
func (m *MarketOutput) TotalEnergy() float64 {
	var total float64
	for _, match := range m.Matches {
		total += match.EnergyKWh
	}

	return total
}

// Remainder is the part of an order that couldn't be matched.
type Remainder struct {
	// Order is the order that was left (partially) unfilled.
	Order order.Order

	// EnergyKWh is the unfilled energy, rounded to three decimal places.
	EnergyKWh float64
}

// MatchSet is the final output of a match making session. This packages all
// matches of the batch, along with the part of every order that couldn't be
// matched.
type MatchSet struct {
	// Matches is the list of matches in generation order. Note that an
	// order may appear multiple times if it participated in a series of
	// partial matches.
	Matches []Match

	// UnmatchedBids is the unfilled part of each bid, in priority order.
	UnmatchedBids []Remainder

	// UnmatchedAsks is the unfilled part of each ask, in priority order.
	UnmatchedAsks []Remainder
}

// Output returns the market output of the match set. The returned matches
// never alias the match set.
func (m *MatchSet) Output() *MarketOutput {
	matches := make([]Match, len(m.Matches))
	copy(matches, m.Matches)

	return &MarketOutput{Matches: matches}
}

// MatchMaker is the interface that's responsible for locating all possible
// matches within a batch of orders. Implementations are stateful, so a new
// instance should be created for each batch.
type MatchMaker interface {
	// MatchPossible returns a price quote (which may be null) as well as a
	// bool that indicates if a match is possible given the current state
	// of the passed bid and ask.
	MatchPossible(bid, ask *Candidate) (PriceQuote, bool)

	// MatchBatch matches an entire batch of candidates resulting in a
	// final MatchSet. The remaining energy of the candidates is consumed
	// along the way.
	MatchBatch(bids, asks []*Candidate) *MatchSet
}

// FeeAwareClearer is a clearing strategy that takes the grid fees between
// clusters into account and trades off welfare against fairness. No such
// strategy ships with this package, it can be provided by the caller.
type FeeAwareClearer interface {
	// FairClear clears the input given a fairness coefficient and the
	// grid fee matrix of the clusters the orders are located in.
	FairClear(input *order.MarketInput, fairness float64,
		fees *GridFeeMatrix) (*MarketOutput, error)
}
