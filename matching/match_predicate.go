package matching

import (
	"github.com/simplyr/simplyr/order"
)

var (
	// DefaultPredicateChain is the default chain of match predicates that
	// is applied to all orders. It only enforces price compatibility.
	DefaultPredicateChain = []MatchPredicate{
		MatchPredicateFunc(BidPriceGreaterOrEqualPredicate),
	}
)

// MatchPredicate is an interface that implements a generic matching predicate.
type MatchPredicate interface {
	// IsMatchable returns true if this specific predicate doesn't have any
	// objection about two orders being matched. This does not yet mean the
	// match will succeed as many predicates are usually chained together
	// and a match only succeeds if _all_ of the predicates return true.
	IsMatchable(ask, bid *order.Order) bool
}

// MatchPredicateFunc is a simple function type that implements the
// MatchPredicate interface.
type MatchPredicateFunc func(ask, bid *order.Order) bool

// IsMatchable returns true if this specific predicate doesn't have any
// objection about two orders being matched.
//
// NOTE: This is part of the MatchPredicate interface.
func (f MatchPredicateFunc) IsMatchable(ask, bid *order.Order) bool {
	return f(ask, bid)
}

// BidPriceGreaterOrEqualPredicate is a matching predicate that returns true
// if the bid is willing to pay at least the price the ask demands.
func BidPriceGreaterOrEqualPredicate(ask, bid *order.Order) bool {
	return bid.PriceEuroPerKWh >= ask.PriceEuroPerKWh
}

// DifferentActorsPredicate is a matching predicate that returns true if the
// two orders weren't placed by the same market participant.
func DifferentActorsPredicate(ask, bid *order.Order) bool {
	return ask.ActorID != bid.ActorID
}

// SameTimeSlotPredicate is a matching predicate that returns true if both
// orders belong to the same time slot.
func SameTimeSlotPredicate(ask, bid *order.Order) bool {
	return ask.TimeSlot == bid.TimeSlot
}

// ChainMatches returns true if all predicates in the given chain are matchable
// to the given ask and bid orders.
func ChainMatches(ask, bid *order.Order, chain ...MatchPredicate) bool {
	for _, pred := range chain {
		if !pred.IsMatchable(ask, bid) {
			return false
		}
	}

	return true
}
