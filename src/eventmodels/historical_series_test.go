package eventmodels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_HistoricalSeries(t *testing.T) {
	t.Run("finalize with no bars is an error", func(t *testing.T) {
		series := NewHistoricalSeries()

		err := series.Finalize(14)

		assert.Error(t, err)
		assert.False(t, series.IsFinalized())
	})

	t.Run("latest close follows the last appended bar", func(t *testing.T) {
		// arrange
		series := NewHistoricalSeries()

		_, ok := series.LatestClose()
		assert.False(t, ok)

		// act
		series.Append(HistoricalBar{Date: "20260824", High: 102, Low: 98, Close: 100})
		series.Append(HistoricalBar{Date: "20260825", High: 58, Low: 56, Close: 57})

		// assert
		closePrice, ok := series.LatestClose()
		assert.True(t, ok)
		assert.Equal(t, 57.0, closePrice)
	})

	t.Run("finalize derives percent moves and averages the top N", func(t *testing.T) {
		// arrange
		series := NewHistoricalSeries()
		series.Append(HistoricalBar{Date: "20260820", High: 104, Low: 100, Close: 100}) // 4%
		series.Append(HistoricalBar{Date: "20260821", High: 102, Low: 100, Close: 100}) // 2%
		series.Append(HistoricalBar{Date: "20260824", High: 106, Low: 100, Close: 100}) // 6%
		series.Append(HistoricalBar{Date: "20260825", High: 101, Low: 100, Close: 100}) // 1%

		// act
		err := series.Finalize(2)

		// assert
		assert.NoError(t, err)
		assert.True(t, series.IsFinalized())

		topMoves := series.TopMoves()
		assert.Len(t, topMoves, 2)
		assert.Equal(t, "20260824", topMoves[0].Date)
		assert.Equal(t, "20260820", topMoves[1].Date)

		assert.InDelta(t, 5.0, series.AveragePercentMove(), 1e-9)
	})

	t.Run("top N larger than the series uses every bar", func(t *testing.T) {
		// arrange
		series := NewHistoricalSeries()
		series.Append(HistoricalBar{Date: "20260824", High: 104, Low: 100, Close: 100}) // 4%
		series.Append(HistoricalBar{Date: "20260825", High: 102, Low: 100, Close: 100}) // 2%

		// act
		err := series.Finalize(14)

		// assert
		assert.NoError(t, err)
		assert.Len(t, series.TopMoves(), 2)
		assert.InDelta(t, 3.0, series.AveragePercentMove(), 1e-9)
	})

	t.Run("finalize is idempotent", func(t *testing.T) {
		// arrange
		series := NewHistoricalSeries()
		series.Append(HistoricalBar{Date: "20260825", High: 102, Low: 100, Close: 100})
		assert.NoError(t, series.Finalize(14))
		average := series.AveragePercentMove()

		// act
		err := series.Finalize(1)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, average, series.AveragePercentMove())
	})
}
