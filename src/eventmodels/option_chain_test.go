package eventmodels

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLeg(symbol string, strike float64, right OptionRight) Contract {
	return Contract{
		Symbol:      StockSymbol(symbol),
		SecType:     SecurityTypeOption,
		Currency:    "USD",
		Exchange:    "SMART",
		Expiry:      "20260828",
		Strike:      strike,
		Right:       right,
		LocalSymbol: fmt.Sprintf("%s %s%.0f", symbol, right, strike),
	}
}

func Test_OptionChain(t *testing.T) {
	t.Run("duplicate entries reconcile by local symbol", func(t *testing.T) {
		// arrange
		chain := NewOptionChain()
		leg := newTestLeg("AAPL", 55, RightCall)

		// act
		chain.AddEntry(leg)
		chain.AddEntry(leg)

		// assert
		assert.Equal(t, 1, chain.Len())
	})

	t.Run("mark complete fires once", func(t *testing.T) {
		// arrange
		chain := NewOptionChain()

		// act & assert
		assert.True(t, chain.MarkComplete())
		assert.False(t, chain.MarkComplete())
		assert.True(t, chain.IsComplete())
	})

	t.Run("distinct strikes are sorted and deduped across rights", func(t *testing.T) {
		// arrange
		chain := NewOptionChain()
		for _, strike := range []float64{60, 50, 55} {
			chain.AddEntry(newTestLeg("AAPL", strike, RightCall))
			chain.AddEntry(newTestLeg("AAPL", strike, RightPut))
		}

		// act
		strikes := chain.DistinctStrikes()

		// assert
		assert.Equal(t, []float64{50, 55, 60}, strikes)
	})
}

func Test_OptionChain_FindLeg(t *testing.T) {
	chain := NewOptionChain()
	chain.AddEntry(newTestLeg("AAPL", 55, RightCall))
	chain.AddEntry(newTestLeg("AAPL", 55, RightPut))

	t.Run("finds exact strike and right", func(t *testing.T) {
		leg, err := chain.FindLeg(55, RightPut)

		assert.NoError(t, err)
		assert.Equal(t, 55.0, leg.Strike)
		assert.Equal(t, RightPut, leg.Right)
	})

	t.Run("missing leg is an error", func(t *testing.T) {
		_, err := chain.FindLeg(60, RightCall)

		assert.Error(t, err)
	})
}

func Test_OptionChain_LegsInWindow(t *testing.T) {
	// arrange
	chain := NewOptionChain()
	for _, strike := range []float64{45, 50, 55, 60, 65} {
		chain.AddEntry(newTestLeg("AAPL", strike, RightCall))
		chain.AddEntry(newTestLeg("AAPL", strike, RightPut))
	}

	atmCall := newTestLeg("AAPL", 55, RightCall)
	skip := map[string]bool{atmCall.Key(): true}

	// act
	legs := chain.LegsInWindow(50, 60, skip)

	// assert
	assert.Len(t, legs, 5)
	for _, leg := range legs {
		assert.GreaterOrEqual(t, leg.Strike, 50.0)
		assert.LessOrEqual(t, leg.Strike, 60.0)
		assert.NotEqual(t, atmCall.Key(), leg.Key())
	}

	// ordered by strike, then right
	assert.Equal(t, 50.0, legs[0].Strike)
	assert.Equal(t, 60.0, legs[len(legs)-1].Strike)
}
