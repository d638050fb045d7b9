package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/davecgh/go-spew/spew"
)

// PayAsBidMatchMaker is a concrete implementation of the MatchMaker
// interface. It accepts partial fills of bids and asks, and every match is
// priced at the bid's own limit price. The match maker itself holds no state
// besides its configuration, all fill state lives in the candidates it is
// handed. A set of candidates can therefore only be matched once.
type PayAsBidMatchMaker struct {
	// energyEps is the smallest energy amount that is still matched.
	energyEps float64

	// predicateChain is the set of predicates every bid/ask pair needs
	// to satisfy to be matched.
	predicateChain []MatchPredicate
}

// NewPayAsBidMatchMaker creates a new match maker given the minimum tradable
// energy and the chain of match predicates to apply.
func NewPayAsBidMatchMaker(energyEps float64,
	predicateChain []MatchPredicate) *PayAsBidMatchMaker {

	return &PayAsBidMatchMaker{
		energyEps:      energyEps,
		predicateChain: predicateChain,
	}
}

// MatchPossible returns a price quote, and a bool indicating if a match is
// possible. Note that this method doesn't update the remaining energy of
// either order. Instead this method is a pure function and should be used to
// determine if a match can take place, and how to clear the matched orders.
//
// NOTE: This method is part of the MatchMaker interface.
func (m *PayAsBidMatchMaker) MatchPossible(bid, ask *Candidate) (PriceQuote,
	bool) {

	bidSupply, askSupply := bid.Remaining, ask.Remaining

	switch {
	// An ask that only has a dust amount left is considered to be fully
	// consumed and is never matched again.
	case askSupply <= m.energyEps:
		return NullQuote, false

	// The same goes for a bid, there's nothing left to fill.
	case bidSupply < m.energyEps:
		return NullQuote, false

	// All predicates need to agree for the pair to be matched. The
	// default chain only demands that the bid pays at least the ask's
	// price.
	case !ChainMatches(&ask.Order, &bid.Order, m.predicateChain...):
		return NullQuote, false
	}

	quote := PriceQuote{
		MatchingPrice: bid.Order.PriceEuroPerKWh,
	}

	// At this point we know we have a match, the only remaining work is
	// to ascertain exactly _what_ type of match it is.
	switch {
	// The ask can't fill the bid completely, so the bid will still have
	// energy left after this match.
	case bidSupply > askSupply:
		quote.Type = PartialBidFulfill
		quote.EnergyMatched = askSupply
		quote.EnergyUnmatched = bidSupply - askSupply

	// The bid is filled completely, but the ask can still be paired with
	// other bids.
	case bidSupply < askSupply:
		quote.Type = PartialAskFulfill
		quote.EnergyMatched = bidSupply
		quote.EnergyUnmatched = askSupply - bidSupply

	// Both sides are consumed exactly.
	default:
		quote.Type = TotalFulfill
		quote.EnergyMatched = bidSupply
	}

	return quote, true
}

// sortCandidates sorts bids by descending and asks by ascending price. Ties
// at an equal price are broken by the position of the order in the submitted
// batch, so the outcome never depends on the stability of the sort.
func sortCandidates(bids, asks []*Candidate) {
	sort.Slice(bids, func(i, j int) bool {
		c := comparePrices(
			bids[i].Order.PriceEuroPerKWh,
			bids[j].Order.PriceEuroPerKWh,
		)
		if c != 0 {
			return c > 0
		}

		return bids[i].Seq < bids[j].Seq
	})
	sort.Slice(asks, func(i, j int) bool {
		c := comparePrices(
			asks[i].Order.PriceEuroPerKWh,
			asks[j].Order.PriceEuroPerKWh,
		)
		if c != 0 {
			return c < 0
		}

		return asks[i].Seq < asks[j].Seq
	})
}

// MatchBatch matches an entire batch of candidates. Bids are visited in
// priority order, and for each bid the asks are scanned in priority order
// until the bid is filled. The remaining energy of an ask carries over from
// one bid to the next. Every match is reported with its energy rounded to
// three decimal places, while the bookkeeping of the remaining energy uses
// the unrounded amount.
//
// NOTE: This method is part of the MatchMaker interface.
func (m *PayAsBidMatchMaker) MatchBatch(bids, asks []*Candidate) *MatchSet {
	sortCandidates(bids, asks)

	log.Tracef("Matching %d bids against %d asks: %v", len(bids),
		len(asks), newLogClosure(func() string {
			return spew.Sdump(bids, asks)
		}))

	var matches []Match

	// Our current algorithm is O(M*N) in the worst-case, for each bid,
	// we'll end up running through each ask to check for a possible
	// match.
	for _, bid := range bids {
		for _, ask := range asks {
			// Once the bid only has a dust amount left, we move on
			// to the next bid.
			if bid.Remaining < m.energyEps {
				break
			}

			quote, ok := m.MatchPossible(bid, ask)
			if !ok {
				continue
			}

			matches = append(matches, Match{
				BidID:           bid.Order.ID,
				AskID:           ask.Order.ID,
				EnergyKWh:       RoundEnergy(quote.EnergyMatched),
				PriceEuroPerKWh: quote.MatchingPrice,
			})

			bid.Remaining -= quote.EnergyMatched
			ask.Remaining -= quote.EnergyMatched

			log.Tracef("Matched bid %d with ask %d: %v kWh at %v "+
				"EUR/kWh (%v)", bid.Order.ID, ask.Order.ID,
				quote.EnergyMatched, quote.MatchingPrice,
				quote.Type)
		}
	}

	return &MatchSet{
		Matches:       matches,
		UnmatchedBids: remainders(bids),
		UnmatchedAsks: remainders(asks),
	}
}

// remainders returns the unfilled part of every candidate that still has
// energy left once rounded to three decimal places.
func remainders(candidates []*Candidate) []Remainder {
	var res []Remainder
	for _, c := range candidates {
		left := RoundEnergy(math.Max(c.Remaining, 0))
		if left == 0 {
			continue
		}

		res = append(res, Remainder{
			Order:     c.Order,
			EnergyKWh: left,
		})
	}

	return res
}

// String returns a short description of the match.
func (m Match) String() string {
	return fmt.Sprintf("bid=%d, ask=%d, energy=%v kWh, price=%v EUR/kWh",
		m.BidID, m.AskID, m.EnergyKWh, m.PriceEuroPerKWh)
}

// A compile-time assertion to ensure that the PayAsBidMatchMaker meets the
// MatchMaker interface.
var _ MatchMaker = (*PayAsBidMatchMaker)(nil)
