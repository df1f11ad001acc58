package eventmodels

import (
	"fmt"
	"sort"
	"strings"
)

// PriceSnapshot accumulates last-seen tick values for one instrument. Fields
// only ever move from unset to a value, or are overwritten by a fresher value
// of the same field; they are never cleared, so IsComplete is monotonic.
type PriceSnapshot struct {
	data map[TickField]float64
}

func NewPriceSnapshot() *PriceSnapshot {
	return &PriceSnapshot{
		data: make(map[TickField]float64),
	}
}

func (s *PriceSnapshot) Update(field TickField, value float64) {
	s.data[field] = value
}

func (s *PriceSnapshot) Get(field TickField) (float64, bool) {
	v, ok := s.data[field]
	return v, ok
}

func (s *PriceSnapshot) IsComplete(required []TickField) bool {
	for _, f := range required {
		if _, ok := s.data[f]; !ok {
			return false
		}
	}

	return true
}

// InstrumentValue derives the single best-available price: mark if present,
// else bid/ask midpoint, else last trade. ok=false means no qualifying field
// has been observed yet; callers must keep waiting or time out, never treat
// a missing value as zero.
func (s *PriceSnapshot) InstrumentValue() (float64, bool) {
	if mark, ok := s.data[TickFieldMark]; ok {
		return mark, true
	}

	bid, hasBid := s.data[TickFieldBid]
	ask, hasAsk := s.data[TickFieldAsk]
	if hasBid && hasAsk {
		return (bid + ask) / 2, true
	}

	if last, ok := s.data[TickFieldLast]; ok {
		return last, true
	}

	return 0, false
}

func (s *PriceSnapshot) String() string {
	fields := make([]string, 0, len(s.data))
	for f, v := range s.data {
		fields = append(fields, fmt.Sprintf("%s=%.4f", f, v))
	}

	sort.Strings(fields)

	return strings.Join(fields, ", ")
}
