package eventmodels

// HistoricalBar is one OHLC row as delivered by the history stream. The
// derived columns are filled in once by HistoricalSeries.Finalize.
type HistoricalBar struct {
	Date  string  `csv:"date"`
	Time  string  `csv:"time"`
	Open  float64 `csv:"open"`
	High  float64 `csv:"high"`
	Low   float64 `csv:"low"`
	Close float64 `csv:"close"`

	CandleLength float64 `csv:"candle_length"`
	PercentMove  float64 `csv:"percent_move"`
}
