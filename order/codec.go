package order

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// DecodeError is returned if a batch of orders can't be decoded into well
// formed orders.
type DecodeError struct {
	// Index is the position of the offending order within the batch, or
	// -1 if the error isn't related to a single order.
	Index int

	// Field is the name of the offending wire field, if known.
	Field string

	// Err is the underlying error.
	Err error
}

// Error returns a human readable description of the decode failure.
func (e *DecodeError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("unable to decode market input: %v", e.Err)

	case e.Field == "":
		return fmt.Sprintf("unable to decode order %d: %v", e.Index,
			e.Err)

	default:
		return fmt.Sprintf("unable to decode order %d, field %s: %v",
			e.Index, e.Field, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// MarshalJSON encodes the order type as its wire name.
func (t Type) MarshalJSON() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, t)
	}

	return json.Marshal(t.String())
}

// UnmarshalJSON decodes the wire name of an order type.
func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	switch s {
	case "bid":
		*t = TypeBid

	case "ask":
		*t = TypeAsk

	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, s)
	}

	return nil
}

// jsonOrder is the wire representation of an order. Required fields are
// pointers so a missing field can be told apart from a zero value.
type jsonOrder struct {
	ID              *uint64  `json:"id"`
	OrderType       *Type    `json:"order_type"`
	TimeSlot        *string  `json:"time_slot"`
	ActorID         *string  `json:"actor_id"`
	ClusterIndex    *int64   `json:"cluster_index,omitempty"`
	EnergyKWh       *float64 `json:"energy_kwh"`
	PriceEuroPerKWh *float64 `json:"price_euro_per_kwh"`
}

type jsonMarketInput struct {
	Orders []json.RawMessage `json:"orders"`
}

// toOrder converts the wire order into its in-memory form, failing if a
// required field is absent.
func (j *jsonOrder) toOrder(idx int) (Order, error) {
	missing := func(field string) error {
		return &DecodeError{
			Index: idx,
			Field: field,
			Err:   fmt.Errorf("missing field"),
		}
	}

	switch {
	case j.ID == nil:
		return Order{}, missing("id")

	case j.OrderType == nil:
		return Order{}, missing("order_type")

	case j.TimeSlot == nil:
		return Order{}, missing("time_slot")

	case j.ActorID == nil:
		return Order{}, missing("actor_id")

	case j.EnergyKWh == nil:
		return Order{}, missing("energy_kwh")

	case j.PriceEuroPerKWh == nil:
		return Order{}, missing("price_euro_per_kwh")
	}

	return Order{
		ID:              *j.ID,
		Type:            *j.OrderType,
		TimeSlot:        *j.TimeSlot,
		ActorID:         *j.ActorID,
		ClusterIndex:    j.ClusterIndex,
		EnergyKWh:       *j.EnergyKWh,
		PriceEuroPerKWh: *j.PriceEuroPerKWh,
	}, nil
}

// MarshalJSON encodes the order in its wire format.
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(&jsonOrder{
		ID:              &o.ID,
		OrderType:       &o.Type,
		TimeSlot:        &o.TimeSlot,
		ActorID:         &o.ActorID,
		ClusterIndex:    o.ClusterIndex,
		EnergyKWh:       &o.EnergyKWh,
		PriceEuroPerKWh: &o.PriceEuroPerKWh,
	})
}

// MarshalJSON encodes the market input in its wire format. An empty input
// is encoded with an empty order list rather than null.
func (m MarketInput) MarshalJSON() ([]byte, error) {
	orders := m.Orders
	if orders == nil {
		orders = []Order{}
	}

	return json.Marshal(struct {
		Orders []Order `json:"orders"`
	}{Orders: orders})
}

// DecodeMarketInput reads a single market input from the given reader. Any
// malformed order results in a *DecodeError.
func DecodeMarketInput(r io.Reader) (*MarketInput, error) {
	var raw jsonMarketInput
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	input := &MarketInput{
		Orders: make([]Order, 0, len(raw.Orders)),
	}
	for idx, rawOrder := range raw.Orders {
		var j jsonOrder
		if err := json.Unmarshal(rawOrder, &j); err != nil {
			return nil, &DecodeError{Index: idx, Err: err}
		}

		o, err := j.toOrder(idx)
		if err != nil {
			return nil, err
		}

		input.Orders = append(input.Orders, o)
	}

	log.Debugf("Decoded market input with %d orders (%d bids, %d asks)",
		len(input.Orders), input.NumBids(), input.NumAsks())

	return input, nil
}

// ReadMarketInputFile decodes the market input stored at the given path.
func ReadMarketInputFile(path string) (*MarketInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open market input: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return DecodeMarketInput(f)
}
