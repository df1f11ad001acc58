package marketdata

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"option-screener/src/eventmodels"
)

type queuedRequest struct {
	record     *eventmodels.MarketRequest
	onAdmitted func()
	submit     func() error
}

// requestPool bounds the number of simultaneously outstanding requests of
// one class. Requests over the bound queue FIFO and are promoted one at a
// time as in-flight requests terminate or are cancelled.
type requestPool struct {
	name   string
	bound  int
	active map[eventmodels.RequestID]bool
	queue  []*queuedRequest
}

func newRequestPool(name string, bound int) *requestPool {
	return &requestPool{
		name:   name,
		bound:  bound,
		active: make(map[eventmodels.RequestID]bool),
	}
}

// removeQueued deletes a not-yet-admitted request from the queue. Returns
// true if the id was found.
func (p *requestPool) removeQueued(id eventmodels.RequestID) bool {
	for i, queued := range p.queue {
		if queued.record.ID == id {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			return true
		}
	}

	return false
}

// Gateway is the admission-controlled front of the market data service. Two
// independent pools keep request/response lookups from starving long-lived
// quote subscriptions and vice versa. The gateway lock covers bookkeeping
// only; calls into the service and caller callbacks always run outside it.
type Gateway struct {
	mu      sync.Mutex
	service Service
	router  *Router
	nextID  eventmodels.RequestID
	records map[eventmodels.RequestID]*eventmodels.MarketRequest
	quotes  *requestPool
	lookups *requestPool
}

func NewGateway(service Service, router *Router, quoteBound, lookupBound int) *Gateway {
	g := &Gateway{
		service: service,
		router:  router,
		records: make(map[eventmodels.RequestID]*eventmodels.MarketRequest),
		quotes:  newRequestPool("quotes", quoteBound),
		lookups: newRequestPool("lookups", lookupBound),
	}

	router.SetTerminalObserver(g)

	return g
}

// SubmitContractLookup requests identity resolution for a contract.
func (g *Gateway) SubmitContractLookup(contract eventmodels.Contract, handler Handler, onAdmitted func()) eventmodels.RequestID {
	return g.submit(g.lookups, eventmodels.RequestKindContractLookup, contract, handler, onAdmitted, func(id eventmodels.RequestID) error {
		return g.service.LookupContract(id, contract)
	})
}

// SubmitChainLookup enumerates the derivative chain for an underlying. It
// shares the lookup pool: chain enumeration is request/response, same class
// as identity lookups.
func (g *Gateway) SubmitChainLookup(contract eventmodels.Contract, handler Handler, onAdmitted func()) eventmodels.RequestID {
	return g.submit(g.lookups, eventmodels.RequestKindChainLookup, contract, handler, onAdmitted, func(id eventmodels.RequestID) error {
		return g.service.LookupContract(id, contract)
	})
}

func (g *Gateway) SubmitHistory(contract eventmodels.Contract, window HistoryWindow, handler Handler, onAdmitted func()) eventmodels.RequestID {
	return g.submit(g.lookups, eventmodels.RequestKindHistorySeries, contract, handler, onAdmitted, func(id eventmodels.RequestID) error {
		return g.service.RequestHistory(id, contract, window)
	})
}

func (g *Gateway) SubmitQuoteSubscription(contract eventmodels.Contract, genericTicks string, handler Handler, onAdmitted func()) eventmodels.RequestID {
	return g.submit(g.quotes, eventmodels.RequestKindQuoteSubscription, contract, handler, onAdmitted, func(id eventmodels.RequestID) error {
		return g.service.SubscribeQuote(id, contract, genericTicks)
	})
}

func (g *Gateway) submit(pool *requestPool, kind eventmodels.RequestKind, contract eventmodels.Contract, handler Handler, onAdmitted func(), forward func(eventmodels.RequestID) error) eventmodels.RequestID {
	record := &eventmodels.MarketRequest{
		Kind:   kind,
		Target: contract,
	}

	queued := &queuedRequest{
		record:     record,
		onAdmitted: onAdmitted,
	}

	g.mu.Lock()
	g.nextID++
	record.ID = g.nextID
	g.records[record.ID] = record
	queued.submit = func() error { return forward(record.ID) }

	// the id is handed out before admission so callers can track and cancel
	// requests that are still queued
	g.router.Register(record.ID, handler)

	if len(pool.active) < pool.bound {
		pool.active[record.ID] = true
		g.mu.Unlock()

		g.admit(pool, queued)
		return record.ID
	}

	pool.queue = append(pool.queue, queued)
	g.mu.Unlock()

	log.Debugf("Gateway: %s pool full (%d active), queued request %d for %s", pool.name, pool.bound, record.ID, contract.Description())

	return record.ID
}

// admit runs outside the gateway lock: the onAdmitted callback and the
// service call may both re-enter the gateway.
func (g *Gateway) admit(pool *requestPool, queued *queuedRequest) {
	queued.record.SubmittedAt = time.Now().UTC()

	if queued.onAdmitted != nil {
		queued.onAdmitted()
	}

	if err := queued.submit(); err != nil {
		log.Errorf("Gateway: failed to submit request %d to service: %v", queued.record.ID, err)
		g.router.Unregister(queued.record.ID)
		g.release(queued.record.ID, false)
	}
}

// Cancel releases a request wherever it currently is: in flight (forwarding
// the cancel to the service and promoting a queued request) or still queued
// (dropped without contacting the service).
func (g *Gateway) Cancel(id eventmodels.RequestID) {
	g.router.Unregister(id)
	g.release(id, true)
}

// OnRequestTerminal implements TerminalObserver: callback-observed completion
// vacates a slot exactly like an explicit cancel, without contacting the
// service again.
func (g *Gateway) OnRequestTerminal(id eventmodels.RequestID) {
	g.release(id, false)
}

func (g *Gateway) release(id eventmodels.RequestID, forwardCancel bool) {
	g.mu.Lock()

	delete(g.records, id)

	var pool *requestPool
	wasActive := false

	for _, p := range []*requestPool{g.quotes, g.lookups} {
		if p.active[id] {
			delete(p.active, id)
			pool = p
			wasActive = true
			break
		}

		if p.removeQueued(id) {
			g.mu.Unlock()
			return
		}
	}

	if !wasActive {
		g.mu.Unlock()
		return
	}

	// exactly one promotion per vacated slot
	var promoted *queuedRequest
	if len(pool.queue) > 0 && len(pool.active) < pool.bound {
		promoted = pool.queue[0]
		pool.queue = pool.queue[1:]
		pool.active[promoted.record.ID] = true
	}

	g.mu.Unlock()

	if forwardCancel {
		g.service.Cancel(id)
	}

	if promoted != nil {
		g.admit(pool, promoted)
	}
}

// OldestActive returns a copy of the in-flight request that has been
// outstanding the longest. Queued requests have no submission time yet and
// are skipped.
func (g *Gateway) OldestActive() (eventmodels.MarketRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var oldest *eventmodels.MarketRequest
	for _, pool := range []*requestPool{g.quotes, g.lookups} {
		for id := range pool.active {
			record, ok := g.records[id]
			if !ok {
				continue
			}

			if oldest == nil || record.SubmittedAt.Before(oldest.SubmittedAt) {
				oldest = record
			}
		}
	}

	if oldest == nil {
		return eventmodels.MarketRequest{}, false
	}

	return *oldest, true
}

// ActiveCount and QueuedCount report per-pool occupancy for progress
// reporting and tests.
func (g *Gateway) ActiveCount(kind eventmodels.RequestKind) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.poolFor(kind).active)
}

func (g *Gateway) QueuedCount(kind eventmodels.RequestKind) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.poolFor(kind).queue)
}

func (g *Gateway) poolFor(kind eventmodels.RequestKind) *requestPool {
	if kind == eventmodels.RequestKindQuoteSubscription {
		return g.quotes
	}

	return g.lookups
}
