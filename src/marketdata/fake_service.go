package marketdata

import (
	"sync"

	"option-screener/src/eventmodels"
)

// FakeMarketService records every call made through the gateway so tests can
// assert on submissions and drive callbacks through a Router by hand.
type FakeMarketService struct {
	mu        sync.Mutex
	lookups   []*eventmodels.MarketRequest
	quotes    []*eventmodels.MarketRequest
	histories []*eventmodels.MarketRequest
	cancelled []eventmodels.RequestID

	LookupErr error
	QuoteErr  error
}

func NewFakeMarketService() *FakeMarketService {
	return &FakeMarketService{}
}

func (s *FakeMarketService) LookupContract(id eventmodels.RequestID, contract eventmodels.Contract) error {
	if s.LookupErr != nil {
		return s.LookupErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups = append(s.lookups, &eventmodels.MarketRequest{ID: id, Kind: eventmodels.RequestKindContractLookup, Target: contract})

	return nil
}

func (s *FakeMarketService) SubscribeQuote(id eventmodels.RequestID, contract eventmodels.Contract, genericTicks string) error {
	if s.QuoteErr != nil {
		return s.QuoteErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotes = append(s.quotes, &eventmodels.MarketRequest{ID: id, Kind: eventmodels.RequestKindQuoteSubscription, Target: contract})

	return nil
}

func (s *FakeMarketService) RequestHistory(id eventmodels.RequestID, contract eventmodels.Contract, window HistoryWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.histories = append(s.histories, &eventmodels.MarketRequest{ID: id, Kind: eventmodels.RequestKindHistorySeries, Target: contract})

	return nil
}

func (s *FakeMarketService) Cancel(id eventmodels.RequestID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelled = append(s.cancelled, id)
}

func (s *FakeMarketService) Lookups() []*eventmodels.MarketRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*eventmodels.MarketRequest, len(s.lookups))
	copy(out, s.lookups)

	return out
}

func (s *FakeMarketService) Quotes() []*eventmodels.MarketRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*eventmodels.MarketRequest, len(s.quotes))
	copy(out, s.quotes)

	return out
}

func (s *FakeMarketService) Histories() []*eventmodels.MarketRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*eventmodels.MarketRequest, len(s.histories))
	copy(out, s.histories)

	return out
}

func (s *FakeMarketService) Cancelled() []eventmodels.RequestID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]eventmodels.RequestID, len(s.cancelled))
	copy(out, s.cancelled)

	return out
}

func (s *FakeMarketService) WasCancelled(id eventmodels.RequestID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancelledID := range s.cancelled {
		if cancelledID == id {
			return true
		}
	}

	return false
}
