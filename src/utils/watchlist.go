package utils

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"option-screener/src/eventmodels"
)

// WatchlistRow matches the earnings watchlist CSV: one row per upcoming
// earnings date with the ticker to evaluate.
type WatchlistRow struct {
	Date   string `csv:"date"`
	Symbol string `csv:"symbol"`
}

// ReadWatchlist returns the symbols listed in the watchlist file, in file
// order, blank rows skipped.
func ReadWatchlist(filename string) ([]eventmodels.StockSymbol, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("ReadWatchlist: failed to open %s: %w", filename, err)
	}
	defer file.Close()

	var rows []*WatchlistRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("ReadWatchlist: failed to parse %s: %w", filename, err)
	}

	var symbols []eventmodels.StockSymbol
	for _, row := range rows {
		if row.Symbol == "" {
			continue
		}

		symbols = append(symbols, eventmodels.NewStockSymbol(row.Symbol))
	}

	return symbols, nil
}
