package order

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned if an order carries a side tag that is
	// neither a bid nor an ask.
	ErrUnknownType = errors.New("unknown order type")

	// ErrInvalidEnergy is returned if the energy amount of an order is
	// negative, NaN or infinite.
	ErrInvalidEnergy = errors.New("invalid energy amount")

	// ErrInvalidPrice is returned if the unit price of an order is NaN or
	// infinite.
	ErrInvalidPrice = errors.New("invalid unit price")

	// ErrInvalidCluster is returned if the cluster index of an order is
	// negative or outside of the known grid.
	ErrInvalidCluster = errors.New("invalid cluster index")

	// ErrDuplicateID is returned if two orders of the same batch share an
	// identifier.
	ErrDuplicateID = errors.New("duplicate order id")
)

// Type is the side of an order. There are exactly two sides in the market.
type Type uint8

const (
	// TypeBid is a buy order. Its price is the maximum the participant is
	// willing to pay per kWh.
	TypeBid Type = iota

	// TypeAsk is a sell order. Its price is the minimum the participant is
	// willing to accept per kWh.
	TypeAsk
)

// String returns the wire name of the order type.
func (t Type) String() string {
	switch t {
	case TypeBid:
		return "bid"

	case TypeAsk:
		return "ask"

	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// IsValid returns true if the type is one of the two known sides.
func (t Type) IsValid() bool {
	return t == TypeBid || t == TypeAsk
}

// Order is a single participant's willingness to buy or sell energy within
// one time slot.
type Order struct {
	// ID identifies the order within its batch. It is not required to be
	// globally unique.
	ID uint64

	// Type is the side of the order.
	Type Type

	// TimeSlot is the opaque identifier of the slot the order is cleared
	// in.
	TimeSlot string

	// ActorID identifies the market participant that placed the order.
	ActorID string

	// ClusterIndex is the optional grid location of the participant. It
	// is only used for grid fee accounting.
	ClusterIndex *int64

	// EnergyKWh is the amount of energy to trade in kilowatt-hours.
	EnergyKWh float64

	// PriceEuroPerKWh is the limit price of the order.
	PriceEuroPerKWh float64
}

// IsBid returns true if the order is a buy order.
func (o *Order) IsBid() bool {
	return o.Type == TypeBid
}

// IsAsk returns true if the order is a sell order.
func (o *Order) IsAsk() bool {
	return o.Type == TypeAsk
}

// Copy returns a deep copy of the order, including the cluster index.
func (o *Order) Copy() Order {
	c := *o
	if o.ClusterIndex != nil {
		idx := *o.ClusterIndex
		c.ClusterIndex = &idx
	}

	return c
}

// String returns a short human readable representation of the order.
func (o *Order) String() string {
	return fmt.Sprintf("%v(id=%d, actor=%s, energy=%v kWh, price=%v "+
		"EUR/kWh)", o.Type, o.ID, o.ActorID, o.EnergyKWh,
		o.PriceEuroPerKWh)
}

// MarketInput contains all orders of one clearing event.
type MarketInput struct {
	// Orders is the set of orders to clear. Their sequence is only used
	// as a tie breaker between orders of equal price.
	Orders []Order
}

// Copy performs a deep copy of the market input.
func (m *MarketInput) Copy() MarketInput {
	orders := make([]Order, 0, len(m.Orders))
	for i := range m.Orders {
		orders = append(orders, m.Orders[i].Copy())
	}

	return MarketInput{Orders: orders}
}

// NumBids returns the number of buy orders in the input.
func (m *MarketInput) NumBids() int {
	var n int
	for i := range m.Orders {
		if m.Orders[i].IsBid() {
			n++
		}
	}

	return n
}

// NumAsks returns the number of sell orders in the input.
func (m *MarketInput) NumAsks() int {
	var n int
	for i := range m.Orders {
		if m.Orders[i].IsAsk() {
			n++
		}
	}

	return n
}
