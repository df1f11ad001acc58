package eventservices

import (
	"encoding/json"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-screener/src/eventmodels"
)

func newTestRecord() *eventmodels.RecommendationRecord {
	record := eventmodels.NewRecommendationRecord("AAPL")
	record.UnderlyingValue = 55.0
	record.UnderlyingBid = 54.9
	record.UnderlyingAsk = 55.1
	record.ExpectedMove = 3.85
	record.AveragePercentMove = 3.0
	record.LowerBoundary = 47.3
	record.UpperBoundary = 62.7
	record.Legs = []eventmodels.OptionLegSnapshot{
		{LocalSymbol: "AAPL C55", Strike: 55, Right: eventmodels.RightCall, Bid: 2.9, Ask: 3.1, InstrumentValue: 3.0},
		{LocalSymbol: "AAPL P55", Strike: 55, Right: eventmodels.RightPut, Bid: 2.4, Ask: 2.6, InstrumentValue: 2.5},
	}
	record.TopMoves = []eventmodels.HistoricalBar{
		{Date: "20260820", High: 104, Low: 100, Close: 100, CandleLength: 4, PercentMove: 4.0},
	}

	return record
}

func Test_ExportRecommendations(t *testing.T) {
	t.Run("writes summary, per-symbol files and the json dump", func(t *testing.T) {
		// arrange
		outDir := t.TempDir()
		records := []*eventmodels.RecommendationRecord{newTestRecord()}

		// act
		files, err := ExportRecommendations(records, outDir)

		// assert
		require.NoError(t, err)
		assert.Len(t, files, 4)

		for _, f := range files {
			info, statErr := os.Stat(f)
			require.NoError(t, statErr)
			assert.Greater(t, info.Size(), int64(0))
		}

		summary, err := os.ReadFile(path.Join(outDir, "recommendations.csv"))
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(summary), "AAPL"))
		assert.True(t, strings.Contains(string(summary), "62.7"))

		var decoded []*eventmodels.RecommendationRecord
		data, err := os.ReadFile(path.Join(outDir, "recommendations.json"))
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Len(t, decoded, 1)
		assert.Equal(t, eventmodels.StockSymbol("AAPL"), decoded[0].Symbol)
		assert.Len(t, decoded[0].Legs, 2)
	})

	t.Run("creates the output directory", func(t *testing.T) {
		// arrange
		outDir := path.Join(t.TempDir(), "nested", "reports")

		// act
		_, err := ExportRecommendations([]*eventmodels.RecommendationRecord{newTestRecord()}, outDir)

		// assert
		assert.NoError(t, err)
		_, statErr := os.Stat(path.Join(outDir, "recommendations.json"))
		assert.NoError(t, statErr)
	})

	t.Run("record without legs or moves only hits the shared files", func(t *testing.T) {
		// arrange
		record := eventmodels.NewRecommendationRecord("MSFT")
		record.UnderlyingValue = 100.0

		// act
		files, err := ExportRecommendations([]*eventmodels.RecommendationRecord{record}, t.TempDir())

		// assert
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})
}
