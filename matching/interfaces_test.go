package matching

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMarketOutputJSON checks the wire format of the market output.
func TestMarketOutputJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(&MarketOutput{})
	require.NoError(t, err)
	require.JSONEq(t, `{"matches": []}`, string(b))

	b, err = json.Marshal(&MarketOutput{Matches: []Match{{
		BidID:           2,
		AskID:           1,
		EnergyKWh:       1.5,
		PriceEuroPerKWh: 0.35,
	}}})
	require.NoError(t, err)
	require.JSONEq(t, `{"matches": [{"bid_id": 2, "ask_id": 1,
		"energy_kwh": 1.5, "price_euro_per_kwh": 0.35}]}`, string(b))
}

func TestFulfillTypeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "TotalFulfill", TotalFulfill.String())
	require.Equal(t, "PartialAskFulfill", PartialAskFulfill.String())
	require.Equal(t, "PartialBidFulfill", PartialBidFulfill.String())
	require.Equal(t, "UnknownFulfill", FulfillType(9).String())
}
