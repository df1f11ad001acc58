package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"option-screener/src/eventmodels"
)

func newTestGateway(quoteBound, lookupBound int) (*Gateway, *FakeMarketService, *Router) {
	service := NewFakeMarketService()
	router := NewRouter()
	gateway := NewGateway(service, router, quoteBound, lookupBound)

	return gateway, service, router
}

func Test_Gateway_QuotePool(t *testing.T) {
	stock := eventmodels.NewStockContract("AAPL")

	t.Run("admits up to the bound and queues the rest", func(t *testing.T) {
		// arrange
		gateway, service, _ := newTestGateway(2, 5)
		handler := &recordingHandler{}

		// act
		id1 := gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)
		id2 := gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)
		id3 := gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)

		// assert
		assert.NotEqual(t, id1, id2)
		assert.NotEqual(t, id2, id3)
		assert.Len(t, service.Quotes(), 2)
		assert.Equal(t, 2, gateway.ActiveCount(eventmodels.RequestKindQuoteSubscription))
		assert.Equal(t, 1, gateway.QueuedCount(eventmodels.RequestKindQuoteSubscription))
	})

	t.Run("cancel of an in-flight request promotes the queue head", func(t *testing.T) {
		// arrange
		gateway, service, _ := newTestGateway(1, 5)
		handler := &recordingHandler{}

		id1 := gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)
		id2 := gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)
		id3 := gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)

		// act
		gateway.Cancel(id1)

		// assert: cancel forwarded, oldest queued request promoted first
		assert.True(t, service.WasCancelled(id1))
		require.Len(t, service.Quotes(), 2)
		assert.Equal(t, id2, service.Quotes()[1].ID)
		assert.Equal(t, 1, gateway.ActiveCount(eventmodels.RequestKindQuoteSubscription))
		assert.Equal(t, 1, gateway.QueuedCount(eventmodels.RequestKindQuoteSubscription))

		// and the next cancel promotes the remaining one
		gateway.Cancel(id2)
		require.Len(t, service.Quotes(), 3)
		assert.Equal(t, id3, service.Quotes()[2].ID)
		assert.Equal(t, 0, gateway.QueuedCount(eventmodels.RequestKindQuoteSubscription))
	})

	t.Run("cancel of a queued request never reaches the service", func(t *testing.T) {
		// arrange
		gateway, service, _ := newTestGateway(1, 5)
		handler := &recordingHandler{}

		gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)
		queuedID := gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)

		// act
		gateway.Cancel(queuedID)

		// assert
		assert.False(t, service.WasCancelled(queuedID))
		assert.Len(t, service.Quotes(), 1)
		assert.Equal(t, 0, gateway.QueuedCount(eventmodels.RequestKindQuoteSubscription))
		assert.Equal(t, 1, gateway.ActiveCount(eventmodels.RequestKindQuoteSubscription))
	})

	t.Run("onAdmitted fires at admission time, not submission time", func(t *testing.T) {
		// arrange
		gateway, _, _ := newTestGateway(1, 5)
		handler := &recordingHandler{}

		admitted := []string{}

		first := func() { admitted = append(admitted, "first") }
		second := func() { admitted = append(admitted, "second") }

		id1 := gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, first)
		gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, second)

		assert.Equal(t, []string{"first"}, admitted)

		// act
		gateway.Cancel(id1)

		// assert
		assert.Equal(t, []string{"first", "second"}, admitted)
	})
}

func Test_Gateway_LookupPool(t *testing.T) {
	stock := eventmodels.NewStockContract("AAPL")

	t.Run("lookups and quotes are bounded independently", func(t *testing.T) {
		// arrange
		gateway, service, _ := newTestGateway(1, 2)
		handler := &recordingHandler{}

		// act: fill the quote pool, then submit lookups
		gateway.SubmitQuoteSubscription(stock, GenericTicksStock, handler, nil)
		gateway.SubmitContractLookup(stock, handler, nil)
		gateway.SubmitContractLookup(stock, handler, nil)
		gateway.SubmitContractLookup(stock, handler, nil)

		// assert
		assert.Len(t, service.Lookups(), 2)
		assert.Equal(t, 1, gateway.QueuedCount(eventmodels.RequestKindContractLookup))
		assert.Equal(t, 1, gateway.ActiveCount(eventmodels.RequestKindQuoteSubscription))
	})

	t.Run("history shares the lookup pool", func(t *testing.T) {
		// arrange
		gateway, service, _ := newTestGateway(5, 1)
		handler := &recordingHandler{}
		window := HistoryWindow{Duration: "3 Y", BarSize: "1 day", UseRTH: true}

		// act
		gateway.SubmitContractLookup(stock, handler, nil)
		gateway.SubmitHistory(stock, window, handler, nil)

		// assert
		assert.Len(t, service.Lookups(), 1)
		assert.Empty(t, service.Histories())
		assert.Equal(t, 1, gateway.QueuedCount(eventmodels.RequestKindContractLookup))
	})

	t.Run("callback-observed completion vacates the slot without a service cancel", func(t *testing.T) {
		// arrange
		gateway, service, router := newTestGateway(5, 1)
		handler := &recordingHandler{}

		id1 := gateway.SubmitContractLookup(stock, handler, nil)
		id2 := gateway.SubmitContractLookup(stock, handler, nil)

		require.Len(t, service.Lookups(), 1)

		// act: the service reports end-of-data for the first lookup
		router.OnContractDetailsEnd(id1)

		// assert
		assert.False(t, service.WasCancelled(id1))
		assert.Equal(t, 1, handler.detailEnd)
		require.Len(t, service.Lookups(), 2)
		assert.Equal(t, id2, service.Lookups()[1].ID)
	})
}

func Test_Gateway_OldestActive(t *testing.T) {
	// arrange
	gateway, _, _ := newTestGateway(5, 1)
	handler := &recordingHandler{}
	stock := eventmodels.NewStockContract("AAPL")

	_, ok := gateway.OldestActive()
	assert.False(t, ok)

	id1 := gateway.SubmitContractLookup(stock, handler, nil)
	id2 := gateway.SubmitContractLookup(stock, handler, nil)

	// act & assert: the queued request is not in flight yet
	oldest, ok := gateway.OldestActive()
	require.True(t, ok)
	assert.Equal(t, id1, oldest.ID)
	assert.Equal(t, eventmodels.RequestKindContractLookup, oldest.Kind)
	assert.False(t, oldest.SubmittedAt.IsZero())

	// the promoted request takes over once the slot vacates
	gateway.Cancel(id1)
	oldest, ok = gateway.OldestActive()
	require.True(t, ok)
	assert.Equal(t, id2, oldest.ID)

	gateway.Cancel(id2)
	_, ok = gateway.OldestActive()
	assert.False(t, ok)
}

func Test_Gateway_SubmitFailure(t *testing.T) {
	t.Run("service rejection releases the slot and the handler", func(t *testing.T) {
		// arrange
		gateway, service, router := newTestGateway(5, 5)
		service.LookupErr = assert.AnError
		handler := &recordingHandler{}

		// act
		gateway.SubmitContractLookup(eventmodels.NewStockContract("AAPL"), handler, nil)

		// assert
		assert.Equal(t, 0, gateway.ActiveCount(eventmodels.RequestKindContractLookup))
		assert.Equal(t, 0, router.Len())
	})
}
