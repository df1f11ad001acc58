package eventservices

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/gocarina/gocsv"

	"option-screener/src/eventmodels"
)

// RecommendationCSVRow is the flat export shape: one row per recommendation
// with the boundary block; legs and top moves go to their own files.
type RecommendationCSVRow struct {
	Symbol             string  `csv:"symbol"`
	Timestamp          string  `csv:"timestamp"`
	UnderlyingBid      float64 `csv:"underlying_bid"`
	UnderlyingAsk      float64 `csv:"underlying_ask"`
	UnderlyingValue    float64 `csv:"underlying_value"`
	ExpectedMove       float64 `csv:"expected_move"`
	AveragePercentMove float64 `csv:"average_percent_move"`
	LowerBoundary      float64 `csv:"lower_boundary"`
	UpperBoundary      float64 `csv:"upper_boundary"`
	LegCount           int     `csv:"leg_count"`
}

// ExportRecommendations writes the summary CSV, a per-symbol legs CSV, a
// per-symbol top-moves CSV, and a full JSON dump. Returns the files written.
func ExportRecommendations(records []*eventmodels.RecommendationRecord, outDir string) ([]string, error) {
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, fmt.Errorf("ExportRecommendations: failed to create %s: %w", outDir, err)
		}
	}

	var output []string

	rows := make([]*RecommendationCSVRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, &RecommendationCSVRow{
			Symbol:             record.Symbol.String(),
			Timestamp:          record.Timestamp.Format(time.RFC3339),
			UnderlyingBid:      record.UnderlyingBid,
			UnderlyingAsk:      record.UnderlyingAsk,
			UnderlyingValue:    record.UnderlyingValue,
			ExpectedMove:       record.ExpectedMove,
			AveragePercentMove: record.AveragePercentMove,
			LowerBoundary:      record.LowerBoundary,
			UpperBoundary:      record.UpperBoundary,
			LegCount:           len(record.Legs),
		})
	}

	summaryFile := path.Join(outDir, "recommendations.csv")
	if err := writeCsv(summaryFile, rows); err != nil {
		return nil, err
	}
	output = append(output, summaryFile)

	for _, record := range records {
		if len(record.Legs) > 0 {
			legsFile := path.Join(outDir, fmt.Sprintf("legs-%s.csv", record.Symbol))
			legs := make([]*eventmodels.OptionLegSnapshot, len(record.Legs))
			for i := range record.Legs {
				legs[i] = &record.Legs[i]
			}

			if err := writeCsv(legsFile, legs); err != nil {
				return nil, err
			}
			output = append(output, legsFile)
		}

		if len(record.TopMoves) > 0 {
			movesFile := path.Join(outDir, fmt.Sprintf("top-moves-%s.csv", record.Symbol))
			moves := make([]*eventmodels.HistoricalBar, len(record.TopMoves))
			for i := range record.TopMoves {
				moves[i] = &record.TopMoves[i]
			}

			if err := writeCsv(movesFile, moves); err != nil {
				return nil, err
			}
			output = append(output, movesFile)
		}
	}

	jsonFile := path.Join(outDir, "recommendations.json")
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ExportRecommendations: failed to marshal records: %w", err)
	}

	if err := os.WriteFile(jsonFile, data, 0644); err != nil {
		return nil, fmt.Errorf("ExportRecommendations: failed to write %s: %w", jsonFile, err)
	}
	output = append(output, jsonFile)

	return output, nil
}

func writeCsv(filename string, rows interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("writeCsv: failed to create %s: %w", filename, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(rows, file); err != nil {
		return fmt.Errorf("writeCsv: failed to marshal %s: %w", filename, err)
	}

	return nil
}
