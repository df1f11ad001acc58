package eventmodels

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
)

// OptionLegSnapshot is the exported view of one option leg at finalize time.
type OptionLegSnapshot struct {
	LocalSymbol     string      `csv:"local_symbol" json:"local_symbol"`
	Strike          float64     `csv:"strike" json:"strike"`
	Right           OptionRight `csv:"right" json:"right"`
	Bid             float64     `csv:"bid" json:"bid"`
	Ask             float64     `csv:"ask" json:"ask"`
	Delta           float64     `csv:"delta" json:"delta"`
	Gamma           float64     `csv:"gamma" json:"gamma"`
	Vega            float64     `csv:"vega" json:"vega"`
	ImpliedVol      float64     `csv:"iv" json:"iv"`
	InstrumentValue float64     `csv:"instrument_value" json:"instrument_value"`
}

// RecommendationRecord is emitted exactly once per completed task.
type RecommendationRecord struct {
	ID        uuid.UUID   `json:"id"`
	Symbol    StockSymbol `json:"symbol"`
	Timestamp time.Time   `json:"timestamp"`

	UnderlyingBid   float64 `json:"underlying_bid"`
	UnderlyingAsk   float64 `json:"underlying_ask"`
	UnderlyingValue float64 `json:"underlying_value"`

	ExpectedMove       float64 `json:"expected_move"`
	AveragePercentMove float64 `json:"average_percent_move"`
	LowerBoundary      float64 `json:"lower_boundary"`
	UpperBoundary      float64 `json:"upper_boundary"`

	Legs     []OptionLegSnapshot `json:"legs"`
	TopMoves []HistoricalBar     `json:"top_moves"`
}

func (r *RecommendationRecord) String() string {
	display := &strings.Builder{}

	display.WriteString(fmt.Sprintf("%s: expected move %.2f, boundaries %.2f ... %.2f ... %.2f (avg top move %.2f%%)\n",
		r.Symbol, r.ExpectedMove, r.LowerBoundary, r.UnderlyingValue, r.UpperBoundary, r.AveragePercentMove))

	table := tablewriter.NewWriter(display)
	table.SetHeader([]string{"Leg", "Strike", "Right", "Bid", "Ask", "IV", "Delta", "Value"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, leg := range r.Legs {
		table.Append([]string{
			leg.LocalSymbol,
			fmt.Sprintf("%.2f", leg.Strike),
			string(leg.Right),
			fmt.Sprintf("%.2f", leg.Bid),
			fmt.Sprintf("%.2f", leg.Ask),
			fmt.Sprintf("%.4f", leg.ImpliedVol),
			fmt.Sprintf("%.4f", leg.Delta),
			fmt.Sprintf("%.2f", leg.InstrumentValue),
		})
	}

	table.Render()

	return display.String()
}

func NewRecommendationRecord(symbol StockSymbol) *RecommendationRecord {
	return &RecommendationRecord{
		ID:        uuid.New(),
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
	}
}
