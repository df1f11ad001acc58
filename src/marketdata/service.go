package marketdata

import (
	"option-screener/src/eventmodels"
)

// Generic tick lists requested per security type. "100,101" adds option call
// and put open interest, "232" the mark price.
const (
	GenericTicksStock  = "232"
	GenericTicksOption = "100,101,232"
)

// HistoryWindow describes one historical data request.
type HistoryWindow struct {
	Duration string // e.g. "3 Y"
	BarSize  string // e.g. "1 day"
	UseRTH   bool
}

// Service is the narrow surface of the external streaming data service.
// Every call is asynchronous: results come back through the Handler
// registered for the request id, on the service's own delivery goroutine.
type Service interface {
	LookupContract(id eventmodels.RequestID, contract eventmodels.Contract) error
	SubscribeQuote(id eventmodels.RequestID, contract eventmodels.Contract, genericTicks string) error
	RequestHistory(id eventmodels.RequestID, contract eventmodels.Contract, window HistoryWindow) error
	Cancel(id eventmodels.RequestID)
}

// Handler receives the callbacks for requests it owns. Implementations must
// not block: dispatch happens on the service delivery goroutine.
type Handler interface {
	OnContractDetails(id eventmodels.RequestID, contract eventmodels.Contract)
	OnContractDetailsEnd(id eventmodels.RequestID)
	OnTickPrice(id eventmodels.RequestID, field eventmodels.TickField, value float64)
	OnOptionComputation(id eventmodels.RequestID, greeks eventmodels.Greeks)
	OnHistoricalBar(id eventmodels.RequestID, bar eventmodels.HistoricalBar)
	OnHistoryEnd(id eventmodels.RequestID)
	OnRequestError(id eventmodels.RequestID, code int, message string)
}

// advisoryCodes are informational notices from the service that must never
// terminate a request or fail a task: data-farm connectivity messages,
// "no market data outside trading hours", and similar.
var advisoryCodes = map[int]bool{
	366:  true, // no historical data query found for ticker
	2104: true, // market data farm connection is OK
	2106: true, // historical data farm connection is OK
	2158: true, // sec-def data farm connection is OK
	2176: true, // fractional share order size warning
}

func IsAdvisoryCode(code int) bool {
	return advisoryCodes[code]
}
