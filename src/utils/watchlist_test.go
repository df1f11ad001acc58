package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-screener/src/eventmodels"
)

func Test_ReadWatchlist(t *testing.T) {
	t.Run("reads symbols in file order, uppercased", func(t *testing.T) {
		// arrange
		content := "date,symbol\n2026-08-27,aapl\n2026-08-27,MSFT\n2026-08-28,\n2026-08-28,nvda\n"
		path := filepath.Join(t.TempDir(), "watchlist.csv")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		// act
		symbols, err := ReadWatchlist(path)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, []eventmodels.StockSymbol{"AAPL", "MSFT", "NVDA"}, symbols)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := ReadWatchlist(filepath.Join(t.TempDir(), "missing.csv"))

		assert.Error(t, err)
	})
}
