package eventmodels

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
)

// HistoricalSeries is append-only while bars stream in. Finalize runs once at
// end-of-data: it derives candle length and percent move for every bar and
// computes the mean of the top-N largest single-bar percent moves.
type HistoricalSeries struct {
	bars      []HistoricalBar
	finalized bool

	topMoves           []HistoricalBar
	averagePercentMove float64
}

func NewHistoricalSeries() *HistoricalSeries {
	return &HistoricalSeries{}
}

func (s *HistoricalSeries) Append(bar HistoricalBar) {
	s.bars = append(s.bars, bar)
}

func (s *HistoricalSeries) Len() int {
	return len(s.bars)
}

func (s *HistoricalSeries) IsFinalized() bool {
	return s.finalized
}

// LatestClose returns the close of the most recent bar. Used as the price
// fallback when the live quote stream stalls.
func (s *HistoricalSeries) LatestClose() (float64, bool) {
	if len(s.bars) == 0 {
		return 0, false
	}

	return s.bars[len(s.bars)-1].Close, true
}

func (s *HistoricalSeries) Finalize(topN int) error {
	if s.finalized {
		return nil
	}

	if len(s.bars) == 0 {
		return fmt.Errorf("HistoricalSeries:Finalize(): no bars collected")
	}

	for i := range s.bars {
		bar := &s.bars[i]
		bar.CandleLength = bar.High - bar.Low
		if bar.Close != 0 {
			bar.PercentMove = (bar.CandleLength / bar.Close) * 100
		}
	}

	ranked := make([]HistoricalBar, len(s.bars))
	copy(ranked, s.bars)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].PercentMove > ranked[j].PercentMove
	})

	if topN > len(ranked) {
		topN = len(ranked)
	}
	s.topMoves = ranked[:topN]

	moves := make([]float64, len(s.topMoves))
	for i, bar := range s.topMoves {
		moves[i] = bar.PercentMove
	}

	mean, err := stats.Mean(moves)
	if err != nil {
		return fmt.Errorf("HistoricalSeries:Finalize(): failed to calculate mean percent move: %w", err)
	}

	s.averagePercentMove = mean
	s.finalized = true

	return nil
}

// TopMoves returns the top-N largest percent-move bars, largest first.
// Only valid after Finalize.
func (s *HistoricalSeries) TopMoves() []HistoricalBar {
	return s.topMoves
}

func (s *HistoricalSeries) AveragePercentMove() float64 {
	return s.averagePercentMove
}
