package matching

import (
	"encoding/json"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/davecgh/go-spew/spew"
	"github.com/simplyr/simplyr/order"
	"github.com/stretchr/testify/require"
)

const testTimeSlot = "2022-03-04T05:06:07+00:00"

func newAsk(id uint64, energy, price float64) order.Order {
	return order.Order{
		ID:              id,
		Type:            order.TypeAsk,
		TimeSlot:        testTimeSlot,
		ActorID:         "seller",
		EnergyKWh:       energy,
		PriceEuroPerKWh: price,
	}
}

func newBid(id uint64, energy, price float64) order.Order {
	return order.Order{
		ID:              id,
		Type:            order.TypeBid,
		TimeSlot:        testTimeSlot,
		ActorID:         "buyer",
		EnergyKWh:       energy,
		PriceEuroPerKWh: price,
	}
}

func marketInput(orders ...order.Order) *order.MarketInput {
	return &order.MarketInput{Orders: orders}
}

type orderGenCfg struct {
	maxEnergy  float64
	numPrices  int
	numActors  int
	bidPercent int
}

type orderGenOption func(*orderGenCfg)

func maxEnergyGen(maxEnergy float64) orderGenOption {
	return func(opt *orderGenCfg) {
		opt.maxEnergy = maxEnergy
	}
}

func numPricesGen(numPrices int) orderGenOption {
	return func(opt *orderGenCfg) {
		opt.numPrices = numPrices
	}
}

// genRandOrderSet generates a random batch of up to maxOrders orders. Prices
// are drawn from a small set of cent values so ties are frequent.
func genRandOrderSet(r *rand.Rand, maxOrders int,
	genOptions ...orderGenOption) *order.MarketInput {

	genCfg := orderGenCfg{
		maxEnergy:  10,
		numPrices:  20,
		numActors:  5,
		bidPercent: 50,
	}
	for _, optionModifier := range genOptions {
		optionModifier(&genCfg)
	}

	numOrders := r.Intn(maxOrders + 1)
	input := &order.MarketInput{
		Orders: make([]order.Order, 0, numOrders),
	}
	for i := 0; i < numOrders; i++ {
		energy := RoundEnergy(r.Float64() * genCfg.maxEnergy)
		price := float64(r.Intn(genCfg.numPrices)) / 100

		o := newAsk(uint64(i+1), energy, price)
		if r.Intn(100) < genCfg.bidPercent {
			o = newBid(uint64(i+1), energy, price)
		}
		o.ActorID = string(rune('a' + r.Intn(genCfg.numActors)))

		input.Orders = append(input.Orders, o)
	}

	return input
}

// TestPayAsBidMatching tests the reference clearing scenarios of the
// pay-as-bid market.
func TestPayAsBidMatching(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    *order.MarketInput
		expected []Match
	}{{
		name: "exact match at equal price",
		input: marketInput(
			newAsk(1, 2.0, 0.30),
			newBid(2, 2.0, 0.30),
		),
		expected: []Match{
			{BidID: 2, AskID: 1, EnergyKWh: 2.0, PriceEuroPerKWh: 0.30},
		},
	}, {
		name: "highest bid is served first",
		input: marketInput(
			newAsk(1, 3.0, 0.30),
			newBid(2, 2.0, 0.40),
			newBid(3, 2.0, 0.30),
		),
		expected: []Match{
			{BidID: 2, AskID: 1, EnergyKWh: 2.0, PriceEuroPerKWh: 0.40},
			{BidID: 3, AskID: 1, EnergyKWh: 1.0, PriceEuroPerKWh: 0.30},
		},
	}, {
		name: "cheapest ask is consumed first",
		input: marketInput(
			newAsk(1, 3.0, 0.20),
			newAsk(2, 2.0, 0.25),
			newBid(3, 4.0, 0.30),
		),
		expected: []Match{
			{BidID: 3, AskID: 1, EnergyKWh: 3.0, PriceEuroPerKWh: 0.30},
			{BidID: 3, AskID: 2, EnergyKWh: 1.0, PriceEuroPerKWh: 0.30},
		},
	}, {
		name: "bid below every ask",
		input: marketInput(
			newAsk(1, 3.0, 0.20),
			newAsk(2, 2.0, 0.25),
			newBid(3, 4.0, 0.19),
		),
	}, {
		name: "bids are sorted regardless of input order",
		input: marketInput(
			newBid(1, 1.0, 0.10),
			newBid(2, 1.0, 0.50),
			newAsk(3, 1.5, 0.05),
		),
		expected: []Match{
			{BidID: 2, AskID: 3, EnergyKWh: 1.0, PriceEuroPerKWh: 0.50},
			{BidID: 1, AskID: 3, EnergyKWh: 0.5, PriceEuroPerKWh: 0.10},
		},
	}, {
		name: "a bid skips asks it can't afford",
		input: marketInput(
			newAsk(1, 1.0, 0.10),
			newAsk(2, 1.0, 0.40),
			newBid(3, 3.0, 0.20),
			newBid(4, 1.0, 0.50),
		),
		expected: []Match{
			{BidID: 4, AskID: 1, EnergyKWh: 1.0, PriceEuroPerKWh: 0.50},
		},
	}, {
		name:  "empty input",
		input: marketInput(),
	}, {
		name: "only asks",
		input: marketInput(
			newAsk(1, 1.0, 0.10),
		),
	}}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			output := PayAsBidMatching(tc.input)
			if len(tc.expected) == 0 {
				require.Empty(t, output.Matches)
				return
			}
			require.Equal(t, tc.expected, output.Matches)
		})
	}
}

// TestPayAsBidTieBreak makes sure orders of equal price are served in the
// order they were submitted in.
func TestPayAsBidTieBreak(t *testing.T) {
	t.Parallel()

	// Two bids and two asks at the same price each. The first submitted
	// bid must be filled first, from the first submitted ask.
	input := marketInput(
		newAsk(10, 1.0, 0.20),
		newBid(5, 1.5, 0.30),
		newAsk(3, 1.0, 0.20),
		newBid(1, 1.5, 0.30),
	)

	output := PayAsBidMatching(input)
	require.Equal(t, []Match{
		{BidID: 5, AskID: 10, EnergyKWh: 1.0, PriceEuroPerKWh: 0.30},
		{BidID: 5, AskID: 3, EnergyKWh: 0.5, PriceEuroPerKWh: 0.30},
		{BidID: 1, AskID: 3, EnergyKWh: 0.5, PriceEuroPerKWh: 0.30},
	}, output.Matches)
}

// TestRoundEnergy checks the rounding of emitted energy amounts.
func TestRoundEnergy(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1.235, RoundEnergy(1.23456))
	require.Equal(t, -1.235, RoundEnergy(-1.23456))
	require.Equal(t, 2.0, RoundEnergy(2.0))
	require.Equal(t, 0.001, RoundEnergy(0.0014))
	require.Equal(t, 0.0, RoundEnergy(0.0004))
}

// TestPayAsBidRounding makes sure matches are rounded to three decimals
// while the remaining energy of an order is tracked unrounded.
func TestPayAsBidRounding(t *testing.T) {
	t.Parallel()

	input := marketInput(
		newAsk(1, 1.23456, 0.10),
		newBid(2, 3.0, 0.30),
	)
	output := PayAsBidMatching(input)
	require.Equal(t, []Match{
		{BidID: 2, AskID: 1, EnergyKWh: 1.235, PriceEuroPerKWh: 0.30},
	}, output.Matches)

	// Three small asks are each rounded down to 0.001 kWh in the emitted
	// matches. Had the bookkeeping used the rounded amount, the bid would
	// have 0.997 kWh left instead of 0.9958 kWh.
	input = marketInput(
		newAsk(1, 0.0014, 0.10),
		newAsk(2, 0.0014, 0.10),
		newAsk(3, 0.0014, 0.10),
		newBid(4, 1.0, 0.30),
	)
	matchSet := NewCallMarket(DefaultConfig()).Clear(input)
	require.Len(t, matchSet.Matches, 3)
	for _, m := range matchSet.Matches {
		require.Equal(t, 0.001, m.EnergyKWh)
	}

	require.Len(t, matchSet.UnmatchedBids, 1)
	require.Equal(t, uint64(4), matchSet.UnmatchedBids[0].Order.ID)
	require.Equal(t, 0.996, matchSet.UnmatchedBids[0].EnergyKWh)
	require.Empty(t, matchSet.UnmatchedAsks)
}

// TestPayAsBidEnergyEpsilon checks that asks at or below the minimum
// tradable energy are never matched, and that a bid stops once its own
// remainder falls below it.
func TestPayAsBidEnergyEpsilon(t *testing.T) {
	t.Parallel()

	// An ask of exactly the minimum energy is treated as exhausted.
	output := PayAsBidMatching(marketInput(
		newAsk(1, DefaultEnergyEpsilon, 0.10),
		newBid(2, 1.0, 0.30),
	))
	require.Empty(t, output.Matches)

	// Slightly above it, the ask is matched.
	output = PayAsBidMatching(marketInput(
		newAsk(1, 0.0011, 0.10),
		newBid(2, 1.0, 0.30),
	))
	require.Equal(t, []Match{
		{BidID: 2, AskID: 1, EnergyKWh: 0.001, PriceEuroPerKWh: 0.30},
	}, output.Matches)

	// A bid that only misses a dust amount after the first ask doesn't
	// touch the second one.
	output = PayAsBidMatching(marketInput(
		newAsk(1, 0.9995, 0.10),
		newAsk(2, 1.0, 0.10),
		newBid(3, 1.0, 0.30),
	))
	require.Len(t, output.Matches, 1)
	require.Equal(t, uint64(1), output.Matches[0].AskID)

	// A bid without any energy never produces a match.
	output = PayAsBidMatching(marketInput(
		newAsk(1, 1.0, 0.10),
		newBid(2, 0, 0.30),
	))
	require.Empty(t, output.Matches)
}

// TestInjectedEnergyEpsilon makes sure the minimum tradable energy can be
// configured.
func TestInjectedEnergyEpsilon(t *testing.T) {
	t.Parallel()

	market := NewCallMarket(&Config{EnergyEpsilon: 0.5})
	require.Equal(t, 0.5, market.EnergyEpsilon())

	matchSet := market.Clear(marketInput(
		newAsk(1, 0.5, 0.10),
		newAsk(2, 0.8, 0.10),
		newAsk(3, 2.0, 0.10),
		newBid(4, 1.2, 0.30),
	))

	// Ask 1 is at the threshold and skipped. Ask 2 is consumed, after
	// which the bid has 0.4 kWh left, which is below the threshold.
	require.Equal(t, []Match{
		{BidID: 4, AskID: 2, EnergyKWh: 0.8, PriceEuroPerKWh: 0.30},
	}, matchSet.Matches)
	require.Len(t, matchSet.UnmatchedBids, 1)
	require.Equal(t, 0.4, matchSet.UnmatchedBids[0].EnergyKWh)
	require.Len(t, matchSet.UnmatchedAsks, 2)

	// A zero epsilon falls back to the default.
	require.Equal(
		t, DefaultEnergyEpsilon,
		NewCallMarket(&Config{}).EnergyEpsilon(),
	)
}

// TestPayAsBidInputUnchanged makes sure the caller's batch is never
// modified by clearing.
func TestPayAsBidInputUnchanged(t *testing.T) {
	t.Parallel()

	cluster := int64(2)
	ask := newAsk(1, 3.0, 0.20)
	ask.ClusterIndex = &cluster
	input := marketInput(
		newBid(3, 2.0, 0.30),
		ask,
		newBid(2, 2.0, 0.40),
	)
	before := input.Copy()

	output := PayAsBidMatching(input)
	require.Len(t, output.Matches, 2)
	require.Equal(t, before, *input)
	require.Equal(t, int64(2), *input.Orders[1].ClusterIndex)
}

// TestPayAsBidDeterministic makes sure clearing the same input twice yields
// byte-identical output.
func TestPayAsBidDeterministic(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(42))
	input := genRandOrderSet(r, 200, numPricesGen(5))

	first, err := json.Marshal(PayAsBidMatching(input))
	require.NoError(t, err)
	second, err := json.Marshal(PayAsBidMatching(input))
	require.NoError(t, err)
	require.Equal(t, first, second)
}

// TestMatchPossible checks the quotes handed out for single pairs.
func TestMatchPossible(t *testing.T) {
	t.Parallel()

	m := NewPayAsBidMatchMaker(DefaultEnergyEpsilon, DefaultPredicateChain)

	ask := newAsk(1, 3, 0.20)
	bid := newBid(2, 2, 0.30)

	quote, ok := m.MatchPossible(newCandidate(&bid, 0), newCandidate(&ask, 1))
	require.True(t, ok)
	require.Equal(t, PriceQuote{
		MatchingPrice:   0.30,
		EnergyMatched:   2,
		EnergyUnmatched: 1,
		Type:            PartialAskFulfill,
	}, quote)

	bid.EnergyKWh = 4
	quote, ok = m.MatchPossible(newCandidate(&bid, 0), newCandidate(&ask, 1))
	require.True(t, ok)
	require.Equal(t, PartialBidFulfill, quote.Type)
	require.Equal(t, 3.0, quote.EnergyMatched)
	require.Equal(t, 1.0, quote.EnergyUnmatched)

	bid.EnergyKWh = 3
	quote, ok = m.MatchPossible(newCandidate(&bid, 0), newCandidate(&ask, 1))
	require.True(t, ok)
	require.Equal(t, TotalFulfill, quote.Type)
	require.Equal(t, 0.0, quote.EnergyUnmatched)

	bid.PriceEuroPerKWh = 0.10
	quote, ok = m.MatchPossible(newCandidate(&bid, 0), newCandidate(&ask, 1))
	require.False(t, ok)
	require.Equal(t, NullQuote, quote)
}

// TestPayAsBidNaNPrices makes sure invalid prices don't break the ordering of
// valid orders, even though they are rejected at the input boundary.
func TestPayAsBidNaNPrices(t *testing.T) {
	t.Parallel()

	output := PayAsBidMatching(marketInput(
		newBid(1, 1.0, math.NaN()),
		newAsk(2, 1.0, 0.10),
		newAsk(3, 1.0, math.NaN()),
		newBid(4, 1.0, 0.20),
	))
	require.Equal(t, []Match{
		{BidID: 4, AskID: 2, EnergyKWh: 1.0, PriceEuroPerKWh: 0.20},
	}, output.Matches)
}

// TestPayAsBidProperties runs the match maker against random batches and
// asserts the invariants of the pay-as-bid market.
func TestPayAsBidProperties(t *testing.T) {
	t.Parallel()

	const dustTolerance = 0.0005 + 1e-9

	scenario := func(input *order.MarketInput) bool {
		market := NewCallMarket(DefaultConfig())
		matchSet := market.Clear(input)

		orders := make(map[uint64]order.Order, len(input.Orders))
		for _, o := range input.Orders {
			orders[o.ID] = o
		}

		var (
			filled  = make(map[uint64]float64)
			counts  = make(map[uint64]int)
			lastBid = math.Inf(1)
		)
		for _, m := range matchSet.Matches {
			bid, ask := orders[m.BidID], orders[m.AskID]

			switch {
			case !bid.IsBid() || !ask.IsAsk():
				t.Logf("match %v doesn't pair a bid and an ask",
					m)
				return false

			// Every match is priced at the bid.
			case m.PriceEuroPerKWh != bid.PriceEuroPerKWh:
				t.Logf("match %v not priced at bid", m)
				return false

			case ask.PriceEuroPerKWh > bid.PriceEuroPerKWh:
				t.Logf("match %v crosses an unaffordable ask", m)
				return false

			// Bids are served in order of descending price.
			case bid.PriceEuroPerKWh > lastBid:
				t.Logf("match %v out of bid priority", m)
				return false

			case m.EnergyKWh < 0:
				t.Logf("match %v with negative energy", m)
				return false
			}
			lastBid = bid.PriceEuroPerKWh

			filled[m.BidID] += m.EnergyKWh
			filled[m.AskID] += m.EnergyKWh
			counts[m.BidID]++
			counts[m.AskID]++
		}

		// No order is filled beyond its energy, allowing for the
		// rounding of each single match.
		for id, energy := range filled {
			limit := orders[id].EnergyKWh +
				float64(counts[id])*dustTolerance
			if energy > limit {
				t.Logf("order %d filled with %v kWh, has %v kWh",
					id, energy, orders[id].EnergyKWh)
				return false
			}
		}

		// Any bid and ask that are left with a tradable amount must
		// not be able to trade with each other.
		for _, bid := range matchSet.UnmatchedBids {
			if bid.EnergyKWh <= 2*DefaultEnergyEpsilon {
				continue
			}
			for _, ask := range matchSet.UnmatchedAsks {
				if ask.EnergyKWh <= 2*DefaultEnergyEpsilon {
					continue
				}

				if bid.Order.PriceEuroPerKWh >=
					ask.Order.PriceEuroPerKWh {

					t.Logf("bid %v and ask %v left "+
						"uncrossed", spew.Sdump(bid),
						spew.Sdump(ask))
					return false
				}
			}
		}

		// Clearing again yields exactly the same result.
		again := market.Clear(input)
		return reflect.DeepEqual(matchSet, again)
	}

	quickCfg := quick.Config{
		Values: func(v []reflect.Value, r *rand.Rand) {
			// When generating the random set below, we'll cap the
			// number of orders to ensure the test completes in a
			// timely manner.
			randOrderSet := genRandOrderSet(r, 300)

			v[0] = reflect.ValueOf(randOrderSet)
		},
	}
	if err := quick.Check(scenario, &quickCfg); err != nil {
		t.Fatalf("pay-as-bid scenario: %v", err)
	}
}

// TestPayAsBidSmallOrders runs the property check with tiny orders so the
// minimum energy threshold is hit frequently.
func TestPayAsBidSmallOrders(t *testing.T) {
	t.Parallel()

	scenario := func(input *order.MarketInput) bool {
		output := PayAsBidMatching(input)
		for _, m := range output.Matches {
			if m.EnergyKWh > 0.01+0.0005 {
				return false
			}
		}

		return true
	}

	quickCfg := quick.Config{
		Values: func(v []reflect.Value, r *rand.Rand) {
			v[0] = reflect.ValueOf(genRandOrderSet(
				r, 100, maxEnergyGen(0.01), numPricesGen(3),
			))
		},
	}
	require.NoError(t, quick.Check(scenario, &quickCfg))
}
