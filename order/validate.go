package order

import (
	"fmt"
	"math"
)

// ValidationError describes an order that violates the caller contract of
// the matching engine.
type ValidationError struct {
	// Index is the position of the offending order within the batch.
	Index int

	// ID is the identifier of the offending order.
	ID uint64

	// Err wraps one of the sentinel errors of this package.
	Err error

	// Detail is an optional human readable explanation.
	Detail string
}

// Error returns a human readable description of the violation.
func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("order %d (id=%d): %v", e.Index, e.ID, e.Err)
	}

	return fmt.Sprintf("order %d (id=%d): %v: %s", e.Index, e.ID, e.Err,
		e.Detail)
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// isFinite returns true if v is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks that the order satisfies the numeric contract of the
// matching engine: a known side, a finite non-negative energy amount and a
// finite price. Negative prices are allowed.
func (o *Order) Validate() error {
	switch {
	case !o.Type.IsValid():
		return ErrUnknownType

	case !isFinite(o.EnergyKWh):
		return fmt.Errorf("%w: %v kWh is not finite", ErrInvalidEnergy,
			o.EnergyKWh)

	case o.EnergyKWh < 0:
		return fmt.Errorf("%w: %v kWh is negative", ErrInvalidEnergy,
			o.EnergyKWh)

	case !isFinite(o.PriceEuroPerKWh):
		return fmt.Errorf("%w: %v EUR/kWh is not finite",
			ErrInvalidPrice, o.PriceEuroPerKWh)

	case o.ClusterIndex != nil && *o.ClusterIndex < 0:
		return fmt.Errorf("%w: %d is negative", ErrInvalidCluster,
			*o.ClusterIndex)
	}

	return nil
}

// Validate checks every order of the input and makes sure identifiers are
// unique within the batch. The first violation found is returned as a
// *ValidationError.
func (m *MarketInput) Validate() error {
	seen := make(map[uint64]int, len(m.Orders))
	for idx := range m.Orders {
		o := &m.Orders[idx]

		if err := o.Validate(); err != nil {
			return &ValidationError{
				Index: idx,
				ID:    o.ID,
				Err:   err,
			}
		}

		if prev, ok := seen[o.ID]; ok {
			return &ValidationError{
				Index:  idx,
				ID:     o.ID,
				Err:    ErrDuplicateID,
				Detail: fmt.Sprintf("already used by order %d", prev),
			}
		}
		seen[o.ID] = idx
	}

	return nil
}

// ValidateClusters makes sure every cluster index of the input addresses one
// of numClusters grid clusters. Orders without a cluster index are accepted.
func (m *MarketInput) ValidateClusters(numClusters int) error {
	for idx := range m.Orders {
		o := &m.Orders[idx]
		if o.ClusterIndex == nil {
			continue
		}

		if *o.ClusterIndex < 0 || *o.ClusterIndex >= int64(numClusters) {
			return &ValidationError{
				Index: idx,
				ID:    o.ID,
				Err:   ErrInvalidCluster,
				Detail: fmt.Sprintf("cluster %d not in [0, %d)",
					*o.ClusterIndex, numClusters),
			}
		}
	}

	return nil
}
