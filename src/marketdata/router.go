package marketdata

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"option-screener/src/eventmodels"
)

// TerminalObserver is notified after a request reaches a terminal event
// (end-of-data or a non-advisory error), so that the admission gateway can
// vacate the slot and promote a queued request.
type TerminalObserver interface {
	OnRequestTerminal(id eventmodels.RequestID)
}

// Router maps every outstanding request id to the single handler that issued
// it and fans inbound callbacks out to that handler. The map is the only
// shared structure; it is locked for lookup and mutation only — handler
// logic always runs outside the lock, so handlers are free to call back
// into the gateway.
type Router struct {
	mu       sync.Mutex
	handlers map[eventmodels.RequestID]Handler
	terminal TerminalObserver
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[eventmodels.RequestID]Handler),
	}
}

func (r *Router) SetTerminalObserver(obs TerminalObserver) {
	r.terminal = obs
}

// Register must be called before the request is submitted to the service.
func (r *Router) Register(id eventmodels.RequestID, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[id] = handler
}

func (r *Router) Unregister(id eventmodels.RequestID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.handlers, id)
}

func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.handlers)
}

// lookup returns the registered handler, if any. Events for unregistered
// ids are dropped by the callers: late deliveries after a task has released
// its requests are expected, not an error.
func (r *Router) lookup(id eventmodels.RequestID) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handler, ok := r.handlers[id]
	return handler, ok
}

func (r *Router) OnContractDetails(id eventmodels.RequestID, contract eventmodels.Contract) {
	handler, ok := r.lookup(id)
	if !ok {
		log.Debugf("Router: dropping contract details for unregistered request %d", id)
		return
	}

	handler.OnContractDetails(id, contract)
}

func (r *Router) OnContractDetailsEnd(id eventmodels.RequestID) {
	handler, ok := r.lookup(id)
	if !ok {
		log.Debugf("Router: dropping contract details end for unregistered request %d", id)
		return
	}

	handler.OnContractDetailsEnd(id)
	r.finish(id)
}

func (r *Router) OnTickPrice(id eventmodels.RequestID, field eventmodels.TickField, value float64) {
	handler, ok := r.lookup(id)
	if !ok {
		log.Debugf("Router: dropping tick for unregistered request %d", id)
		return
	}

	handler.OnTickPrice(id, field, value)
}

func (r *Router) OnOptionComputation(id eventmodels.RequestID, greeks eventmodels.Greeks) {
	handler, ok := r.lookup(id)
	if !ok {
		log.Debugf("Router: dropping option computation for unregistered request %d", id)
		return
	}

	handler.OnOptionComputation(id, greeks)
}

func (r *Router) OnHistoricalBar(id eventmodels.RequestID, bar eventmodels.HistoricalBar) {
	handler, ok := r.lookup(id)
	if !ok {
		log.Debugf("Router: dropping historical bar for unregistered request %d", id)
		return
	}

	handler.OnHistoricalBar(id, bar)
}

func (r *Router) OnHistoryEnd(id eventmodels.RequestID) {
	handler, ok := r.lookup(id)
	if !ok {
		log.Debugf("Router: dropping history end for unregistered request %d", id)
		return
	}

	handler.OnHistoryEnd(id)
	r.finish(id)
}

func (r *Router) OnRequestError(id eventmodels.RequestID, code int, message string) {
	if id < 0 {
		// connection-scoped notice, not tied to any request
		log.Debugf("Router: service notice %d: %s", code, message)
		return
	}

	if IsAdvisoryCode(code) {
		log.Debugf("Router: advisory %d for request %d: %s", code, id, message)
		return
	}

	handler, ok := r.lookup(id)
	if !ok {
		log.Debugf("Router: dropping error %d for unregistered request %d: %s", code, id, message)
		return
	}

	handler.OnRequestError(id, code, message)
	r.finish(id)
}

// finish removes the mapping for a terminally-completed request and lets the
// gateway promote the next queued request of the same class.
func (r *Router) finish(id eventmodels.RequestID) {
	r.Unregister(id)

	if r.terminal != nil {
		r.terminal.OnRequestTerminal(id)
	}
}
