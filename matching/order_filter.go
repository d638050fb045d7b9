package matching

import (
	"github.com/simplyr/simplyr/order"
)

// OrderFilter is an interface that implements a generic filter that skips all
// orders from being included in the matchmaking process that don't meet the
// current criteria.
type OrderFilter interface {
	// IsSuitable returns true if this specific filter doesn't have any
	// objection about an order being included in the matchmaking process.
	IsSuitable(*order.Order) bool
}

// OrderFilterFunc is a simple function type that implements the OrderFilter
// interface.
type OrderFilterFunc func(*order.Order) bool

// IsSuitable returns true if this specific filter doesn't have any objection
// about an order being included in the matchmaking process.
//
// NOTE: This is part of the OrderFilter interface.
func (f OrderFilterFunc) IsSuitable(o *order.Order) bool {
	return f(o)
}

// SuitsFilterChain returns true if all filters in the given chain see the
// given order as suitable.
func SuitsFilterChain(o *order.Order, chain ...OrderFilter) bool {
	for _, filter := range chain {
		if !filter.IsSuitable(o) {
			return false
		}
	}

	return true
}

// NewTimeSlotFilter returns a new filter that filters out all orders that
// don't belong to the given time slot.
func NewTimeSlotFilter(timeSlot string) OrderFilter {
	return OrderFilterFunc(func(o *order.Order) bool {
		if o.TimeSlot != timeSlot {
			log.Debugf("Filtered out order %d of time slot %v",
				o.ID, o.TimeSlot)
			return false
		}

		return true
	})
}

// NewMinEnergyFilter returns a new filter that filters out all orders that
// offer or request less than the given amount of energy.
func NewMinEnergyFilter(minEnergyKWh float64) OrderFilter {
	return OrderFilterFunc(func(o *order.Order) bool {
		if o.EnergyKWh < minEnergyKWh {
			log.Debugf("Filtered out order %d with energy %v kWh",
				o.ID, o.EnergyKWh)
			return false
		}

		return true
	})
}
