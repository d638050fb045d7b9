package matching

import (
	"github.com/simplyr/simplyr/order"
)

// Config holds the parameters of a call market.
type Config struct {
	// EnergyEpsilon is the smallest energy amount in kWh that is still
	// matched. If zero, DefaultEnergyEpsilon is used.
	EnergyEpsilon float64

	// FilterChain is the chain of filters every order needs to pass to
	// take part in clearing.
	FilterChain []OrderFilter

	// PredicateChain is the chain of predicates every bid/ask pair needs
	// to satisfy to be matched. If nil, DefaultPredicateChain is used.
	PredicateChain []MatchPredicate
}

// DefaultConfig returns the configuration of the plain pay-as-bid market.
func DefaultConfig() *Config {
	return &Config{
		EnergyEpsilon:  DefaultEnergyEpsilon,
		PredicateChain: DefaultPredicateChain,
	}
}

// CallMarket is a discrete batch auction that clears a complete snapshot of
// orders with the pay-as-bid rule. A CallMarket is immutable once created and
// can be used to clear any number of batches concurrently, as every call to
// Clear works on its own copy of the orders.
type CallMarket struct {
	energyEps      float64
	filterChain    []OrderFilter
	predicateChain []MatchPredicate
}

// NewCallMarket returns a new call market for the given configuration.
func NewCallMarket(cfg *Config) *CallMarket {
	energyEps := cfg.EnergyEpsilon
	if energyEps == 0 {
		energyEps = DefaultEnergyEpsilon
	}

	predicates := cfg.PredicateChain
	if predicates == nil {
		predicates = DefaultPredicateChain
	}

	return &CallMarket{
		energyEps:      energyEps,
		filterChain:    append([]OrderFilter(nil), cfg.FilterChain...),
		predicateChain: append([]MatchPredicate(nil), predicates...),
	}
}

// EnergyEpsilon returns the smallest energy amount the market still matches.
func (c *CallMarket) EnergyEpsilon() float64 {
	return c.energyEps
}

// Clear clears the given batch of orders. The input isn't modified: orders
// are partitioned into private bid and ask copies, filtered, and handed to a
// fresh match maker.
func (c *CallMarket) Clear(input *order.MarketInput) *MatchSet {
	// NOTE: we make value copies of the orders, such that MatchBatch won't
	// actually mutate the caller's batch.
	var (
		bids = make([]*Candidate, 0, len(input.Orders))
		asks = make([]*Candidate, 0, len(input.Orders))
	)
	for seq := range input.Orders {
		o := &input.Orders[seq]

		if !SuitsFilterChain(o, c.filterChain...) {
			continue
		}

		switch o.Type {
		case order.TypeBid:
			bids = append(bids, newCandidate(o, seq))

		case order.TypeAsk:
			asks = append(asks, newCandidate(o, seq))

		default:
			log.Warnf("Skipping order %d with unknown type %v",
				o.ID, o.Type)
		}
	}

	matchMaker := NewPayAsBidMatchMaker(c.energyEps, c.predicateChain)
	matchSet := matchMaker.MatchBatch(bids, asks)

	log.Debugf("Cleared %d bids and %d asks into %d matches (%d bids and "+
		"%d asks left unfilled)", len(bids), len(asks),
		len(matchSet.Matches), len(matchSet.UnmatchedBids),
		len(matchSet.UnmatchedAsks))

	return matchSet
}

// defaultMarket is the plain pay-as-bid market without any filters.
var defaultMarket = NewCallMarket(DefaultConfig())

// PayAsBidMatching clears the given batch with the default pay-as-bid market
// and returns the resulting matches.
func PayAsBidMatching(input *order.MarketInput) *MarketOutput {
	return defaultMarket.Clear(input).Output()
}
