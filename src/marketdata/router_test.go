package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"option-screener/src/eventmodels"
)

// recordingHandler captures every callback for assertions.
type recordingHandler struct {
	contracts []eventmodels.Contract
	detailEnd int
	ticks     []float64
	greeks    []eventmodels.Greeks
	bars      []eventmodels.HistoricalBar
	histEnd   int
	errors    []string
}

func (h *recordingHandler) OnContractDetails(id eventmodels.RequestID, contract eventmodels.Contract) {
	h.contracts = append(h.contracts, contract)
}

func (h *recordingHandler) OnContractDetailsEnd(id eventmodels.RequestID) {
	h.detailEnd++
}

func (h *recordingHandler) OnTickPrice(id eventmodels.RequestID, field eventmodels.TickField, value float64) {
	h.ticks = append(h.ticks, value)
}

func (h *recordingHandler) OnOptionComputation(id eventmodels.RequestID, greeks eventmodels.Greeks) {
	h.greeks = append(h.greeks, greeks)
}

func (h *recordingHandler) OnHistoricalBar(id eventmodels.RequestID, bar eventmodels.HistoricalBar) {
	h.bars = append(h.bars, bar)
}

func (h *recordingHandler) OnHistoryEnd(id eventmodels.RequestID) {
	h.histEnd++
}

func (h *recordingHandler) OnRequestError(id eventmodels.RequestID, code int, message string) {
	h.errors = append(h.errors, message)
}

type recordingObserver struct {
	terminal []eventmodels.RequestID
}

func (o *recordingObserver) OnRequestTerminal(id eventmodels.RequestID) {
	o.terminal = append(o.terminal, id)
}

func Test_Router(t *testing.T) {
	t.Run("dispatches to the registered handler", func(t *testing.T) {
		// arrange
		router := NewRouter()
		handler := &recordingHandler{}
		router.Register(1, handler)

		// act
		router.OnTickPrice(1, eventmodels.TickFieldLast, 55.0)

		// assert
		assert.Equal(t, []float64{55.0}, handler.ticks)
	})

	t.Run("drops events for unregistered requests", func(t *testing.T) {
		// arrange
		router := NewRouter()

		// act & assert: no panic, nothing delivered
		router.OnTickPrice(99, eventmodels.TickFieldLast, 55.0)
		router.OnContractDetailsEnd(99)
		router.OnHistoryEnd(99)
	})

	t.Run("end of data unregisters and notifies the terminal observer", func(t *testing.T) {
		// arrange
		router := NewRouter()
		observer := &recordingObserver{}
		router.SetTerminalObserver(observer)
		handler := &recordingHandler{}
		router.Register(1, handler)

		// act
		router.OnContractDetailsEnd(1)

		// assert
		assert.Equal(t, 1, handler.detailEnd)
		assert.Equal(t, 0, router.Len())
		assert.Equal(t, []eventmodels.RequestID{1}, observer.terminal)

		// late events after the terminal are dropped
		router.OnContractDetails(1, eventmodels.Contract{})
		assert.Empty(t, handler.contracts)
	})

	t.Run("history end is terminal", func(t *testing.T) {
		// arrange
		router := NewRouter()
		observer := &recordingObserver{}
		router.SetTerminalObserver(observer)
		handler := &recordingHandler{}
		router.Register(2, handler)

		// act
		router.OnHistoricalBar(2, eventmodels.HistoricalBar{Close: 100})
		router.OnHistoryEnd(2)

		// assert
		assert.Len(t, handler.bars, 1)
		assert.Equal(t, 1, handler.histEnd)
		assert.Equal(t, []eventmodels.RequestID{2}, observer.terminal)
	})
}

func Test_Router_OnRequestError(t *testing.T) {
	t.Run("non-advisory errors terminate the request", func(t *testing.T) {
		// arrange
		router := NewRouter()
		observer := &recordingObserver{}
		router.SetTerminalObserver(observer)
		handler := &recordingHandler{}
		router.Register(1, handler)

		// act
		router.OnRequestError(1, 200, "No security definition has been found")

		// assert
		assert.Equal(t, []string{"No security definition has been found"}, handler.errors)
		assert.Equal(t, 0, router.Len())
		assert.Equal(t, []eventmodels.RequestID{1}, observer.terminal)
	})

	t.Run("advisory codes are filtered", func(t *testing.T) {
		// arrange
		router := NewRouter()
		observer := &recordingObserver{}
		router.SetTerminalObserver(observer)
		handler := &recordingHandler{}
		router.Register(1, handler)

		// act
		for _, code := range []int{366, 2104, 2106, 2158, 2176} {
			router.OnRequestError(1, code, "advisory")
		}

		// assert
		assert.Empty(t, handler.errors)
		assert.Equal(t, 1, router.Len())
		assert.Empty(t, observer.terminal)
	})

	t.Run("connection notices have no request id", func(t *testing.T) {
		// arrange
		router := NewRouter()
		handler := &recordingHandler{}
		router.Register(1, handler)

		// act
		router.OnRequestError(-1, 2104, "Market data farm connection is OK")

		// assert
		assert.Empty(t, handler.errors)
		assert.Equal(t, 1, router.Len())
	})
}
