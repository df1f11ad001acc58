package eventmodels

import "sync"

// RecommendationStore accumulates recommendation records per symbol.
// Append-only: repeated runs for the same symbol stack up, nothing is
// replaced or removed.
type RecommendationStore struct {
	mu      sync.Mutex
	records map[StockSymbol][]*RecommendationRecord
}

func NewRecommendationStore() *RecommendationStore {
	return &RecommendationStore{
		records: make(map[StockSymbol][]*RecommendationRecord),
	}
}

func (s *RecommendationStore) Add(record *RecommendationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.Symbol] = append(s.records[record.Symbol], record)
}

func (s *RecommendationStore) Get(symbol StockSymbol) []*RecommendationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*RecommendationRecord, len(s.records[symbol]))
	copy(out, s.records[symbol])

	return out
}

func (s *RecommendationStore) All() []*RecommendationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*RecommendationRecord
	for _, records := range s.records {
		out = append(out, records...)
	}

	return out
}

func (s *RecommendationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, records := range s.records {
		count += len(records)
	}

	return count
}
