package screener

import (
	"math"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"option-screener/src/eventmodels"
	"option-screener/src/marketdata"
)

// SymbolTask evaluates one underlying: it sequences the identity lookup, the
// concurrent price/history/chain phase, the four core option legs, the
// informational range legs, and the final recommendation. The task is driven
// entirely by service callbacks and supervisor ticks; waiting is a state plus
// a deadline, never a blocking call.
type SymbolTask struct {
	mu sync.Mutex

	symbol         eventmodels.StockSymbol
	gateway        *marketdata.Gateway
	cfg            *eventmodels.ScreenerConfigYAML
	expiry         string
	noTradingHours bool

	state         eventmodels.TaskState
	failureReason string

	contract         eventmodels.Contract
	contractResolved bool

	underlyingSnapshot *eventmodels.PriceSnapshot
	chain              *eventmodels.OptionChain
	series             *eventmodels.HistoricalSeries

	// every outstanding request this task owns; released on every exit path
	requests map[eventmodels.RequestID]eventmodels.RequestKind

	lookupReqID  eventmodels.RequestID
	chainReqID   eventmodels.RequestID
	historyReqID eventmodels.RequestID

	snapshotKeyByReq map[eventmodels.RequestID]string
	optionSnapshots  map[string]*eventmodels.PriceSnapshot
	optionContracts  map[string]eventmodels.Contract

	coreLegs  []string
	rangeLegs []string

	startedAt        time.Time
	activeAt         time.Time
	chainRequestedAt time.Time
	coreRequestedAt  time.Time
	rangeRequestedAt time.Time

	screeningDone bool
	analyzing     bool

	fallbackPrice    float64
	hasFallbackPrice bool

	expectedMove   float64
	recommendation *eventmodels.RecommendationRecord

	onComplete func(*eventmodels.RecommendationRecord)
}

func NewSymbolTask(symbol eventmodels.StockSymbol, gateway *marketdata.Gateway, cfg *eventmodels.ScreenerConfigYAML, expiry string, noTradingHours bool) *SymbolTask {
	return &SymbolTask{
		symbol:             symbol,
		gateway:            gateway,
		cfg:                cfg,
		expiry:             expiry,
		noTradingHours:     noTradingHours,
		state:              eventmodels.TaskStatePending,
		underlyingSnapshot: eventmodels.NewPriceSnapshot(),
		chain:              eventmodels.NewOptionChain(),
		series:             eventmodels.NewHistoricalSeries(),
		requests:           make(map[eventmodels.RequestID]eventmodels.RequestKind),
		snapshotKeyByReq:   make(map[eventmodels.RequestID]string),
		optionSnapshots:    make(map[string]*eventmodels.PriceSnapshot),
		optionContracts:    make(map[string]eventmodels.Contract),
	}
}

// SetOnComplete registers the recommendation sink. Must be called before
// Start.
func (t *SymbolTask) SetOnComplete(fn func(*eventmodels.RecommendationRecord)) {
	t.onComplete = fn
}

func (t *SymbolTask) Symbol() eventmodels.StockSymbol {
	return t.symbol
}

func (t *SymbolTask) State() eventmodels.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

func (t *SymbolTask) FailureReason() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.failureReason
}

func (t *SymbolTask) Recommendation() *eventmodels.RecommendationRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.recommendation
}

// Start submits the identity lookup for the underlying.
func (t *SymbolTask) Start(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != eventmodels.TaskStatePending {
		return
	}

	t.startedAt = now
	t.state = eventmodels.TaskStateContractLookup

	stock := eventmodels.NewStockContract(t.symbol)
	t.lookupReqID = t.gateway.SubmitContractLookup(stock, t, nil)
	t.requests[t.lookupReqID] = eventmodels.RequestKindContractLookup

	log.Infof("SymbolTask %s: requested contract details (request %d)", t.symbol, t.lookupReqID)
}

// Cancel releases every outstanding request and discards partial data. A
// cancelled task is never finalized.
func (t *SymbolTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsTerminal() {
		return
	}

	t.failureReason = "cancelled"
	t.finish(eventmodels.TaskStateAborted)
}

// Tick advances timeout and readiness checks. Called by the supervisor loop;
// all work here is bookkeeping, never a blocking call.
func (t *SymbolTask) Tick(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsTerminal() || t.state == eventmodels.TaskStatePending {
		return
	}

	if now.Sub(t.startedAt) > t.cfg.OverallTimeout.ToDuration() {
		t.failureReason = "overall timeout"
		t.finish(eventmodels.TaskStateTimeoutOverall)
		return
	}

	switch t.state {
	case eventmodels.TaskStateActive:
		if !t.chain.IsComplete() && now.Sub(t.chainRequestedAt) > t.cfg.ChainTimeout.ToDuration() {
			log.Warnf("SymbolTask %s: chain lookup timed out with %d entries collected", t.symbol, t.chain.Len())
			t.chain.MarkComplete()
		}

		// quote stream may be stalled; once history is in, fall back to the
		// latest close so the evaluation can proceed
		if _, ok := t.currentPrice(); !ok && t.series.IsFinalized() && now.Sub(t.activeAt) > t.cfg.PriceFallbackAfter.ToDuration() {
			if closePrice, hasClose := t.series.LatestClose(); hasClose {
				log.Warnf("SymbolTask %s: no usable quote after %s, substituting latest close %.2f", t.symbol, t.cfg.PriceFallbackAfter.ToDuration(), closePrice)
				t.fallbackPrice = closePrice
				t.hasFallbackPrice = true
				t.evaluateScreening()
			}
		}

		t.maybeStartOptionAnalysis(now)

	case eventmodels.TaskStateCoreOptionsPending:
		if t.checkCoreLegs(now) {
			return
		}

		if now.Sub(t.coreRequestedAt) > t.cfg.CoreOptionsTimeout.ToDuration() {
			// the expected-move formula is only meaningful with all four
			// legs; never proceed with a partial set
			t.failureReason = "core option legs incomplete"
			t.finish(eventmodels.TaskStateTimeoutCoreOptions)
		}

	case eventmodels.TaskStateRangeOptionsPending:
		t.tryFinalize(now)
	}
}

// --- marketdata.Handler ---

func (t *SymbolTask) OnContractDetails(id eventmodels.RequestID, contract eventmodels.Contract) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsTerminal() {
		return
	}

	switch id {
	case t.lookupReqID:
		if !t.contractResolved {
			t.contract = contract
			t.contractResolved = true
		}
	case t.chainReqID:
		t.chain.AddEntry(contract)
	}
}

func (t *SymbolTask) OnContractDetailsEnd(id eventmodels.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.requests, id)

	if t.state.IsTerminal() {
		return
	}

	switch id {
	case t.lookupReqID:
		if !t.contractResolved {
			t.failureReason = "no contract details returned"
			t.finish(eventmodels.TaskStateFailedLookup)
			return
		}

		t.enterActive()

	case t.chainReqID:
		if t.chain.MarkComplete() {
			log.Infof("SymbolTask %s: option chain complete with %d entries", t.symbol, t.chain.Len())
		}
		t.maybeStartOptionAnalysis(time.Now().UTC())
	}
}

func (t *SymbolTask) OnTickPrice(id eventmodels.RequestID, field eventmodels.TickField, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsTerminal() {
		return
	}

	// the service reports -1 for fields with no current value
	if value < 0 {
		return
	}

	snapshot, key, ok := t.snapshotForRequest(id)
	if !ok {
		return
	}

	snapshot.Update(field, value)
	t.afterSnapshotUpdate(id, key, snapshot)
}

func (t *SymbolTask) OnOptionComputation(id eventmodels.RequestID, greeks eventmodels.Greeks) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsTerminal() {
		return
	}

	snapshot, key, ok := t.snapshotForRequest(id)
	if !ok {
		return
	}

	snapshot.Update(eventmodels.TickFieldDelta, greeks.Delta)
	snapshot.Update(eventmodels.TickFieldGamma, greeks.Gamma)
	snapshot.Update(eventmodels.TickFieldVega, greeks.Vega)
	snapshot.Update(eventmodels.TickFieldTheta, greeks.Theta)
	snapshot.Update(eventmodels.TickFieldIV, greeks.ImpliedVol)

	t.afterSnapshotUpdate(id, key, snapshot)
}

func (t *SymbolTask) OnHistoricalBar(id eventmodels.RequestID, bar eventmodels.HistoricalBar) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.IsTerminal() || id != t.historyReqID {
		return
	}

	t.series.Append(bar)
}

func (t *SymbolTask) OnHistoryEnd(id eventmodels.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.requests, id)

	if t.state.IsTerminal() || id != t.historyReqID {
		return
	}

	if err := t.series.Finalize(t.cfg.TopMoves); err != nil {
		log.Errorf("SymbolTask %s: failed to finalize historical series: %v", t.symbol, err)
		return
	}

	log.Infof("SymbolTask %s: history complete, %d bars, avg top-%d move %.2f%%",
		t.symbol, t.series.Len(), t.cfg.TopMoves, t.series.AveragePercentMove())

	if t.state == eventmodels.TaskStateRangeOptionsPending {
		t.tryFinalize(time.Now().UTC())
	}
}

func (t *SymbolTask) OnRequestError(id eventmodels.RequestID, code int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.requests, id)

	if t.state.IsTerminal() {
		return
	}

	// only the identity lookup is fatal; every other request class is
	// enforced by its phase timeout
	if id == t.lookupReqID {
		log.Errorf("SymbolTask %s: contract lookup failed with code %d: %s", t.symbol, code, message)
		t.failureReason = message
		t.finish(eventmodels.TaskStateFailedLookup)
		return
	}

	log.Warnf("SymbolTask %s: request %d error %d: %s", t.symbol, id, code, message)
}

// --- internal transitions; all called with t.mu held ---

// enterActive submits the underlying quote, the history series, and the
// chain lookup. The three run concurrently and complete in any order.
func (t *SymbolTask) enterActive() {
	t.state = eventmodels.TaskStateActive
	t.activeAt = time.Now().UTC()
	t.chainRequestedAt = t.activeAt

	quoteReqID := t.gateway.SubmitQuoteSubscription(t.contract, marketdata.GenericTicksStock, t, nil)
	t.requests[quoteReqID] = eventmodels.RequestKindQuoteSubscription
	t.snapshotKeyByReq[quoteReqID] = t.contract.Key()

	window := marketdata.HistoryWindow{
		Duration: t.cfg.HistoryDuration,
		BarSize:  t.cfg.HistoryBarSize,
		UseRTH:   true,
	}
	t.historyReqID = t.gateway.SubmitHistory(t.contract, window, t, nil)
	t.requests[t.historyReqID] = eventmodels.RequestKindHistorySeries

	chainContract := eventmodels.NewOptionChainContract(t.symbol, t.expiry)
	t.chainReqID = t.gateway.SubmitChainLookup(chainContract, t, func() {
		log.Debugf("SymbolTask %s: chain lookup admitted", t.symbol)
	})
	t.requests[t.chainReqID] = eventmodels.RequestKindChainLookup

	log.Infof("SymbolTask %s: active — quote %d, history %d, chain %d", t.symbol, quoteReqID, t.historyReqID, t.chainReqID)
}

func (t *SymbolTask) snapshotForRequest(id eventmodels.RequestID) (*eventmodels.PriceSnapshot, string, bool) {
	key, ok := t.snapshotKeyByReq[id]
	if !ok {
		return nil, "", false
	}

	if key == t.contract.Key() {
		return t.underlyingSnapshot, key, true
	}

	snapshot, ok := t.optionSnapshots[key]
	if !ok {
		snapshot = eventmodels.NewPriceSnapshot()
		t.optionSnapshots[key] = snapshot
	}

	return snapshot, key, true
}

// afterSnapshotUpdate re-derives readiness from current data: screening on
// the underlying, leg completeness everywhere, and cancels a subscription
// once its required field set is fully observed.
func (t *SymbolTask) afterSnapshotUpdate(id eventmodels.RequestID, key string, snapshot *eventmodels.PriceSnapshot) {
	now := time.Now().UTC()

	if key == t.contract.Key() {
		t.evaluateScreening()
		if t.state.IsTerminal() {
			return
		}

		t.maybeStartOptionAnalysis(now)
	} else if t.state == eventmodels.TaskStateCoreOptionsPending {
		t.checkCoreLegs(now)
	} else if t.state == eventmodels.TaskStateRangeOptionsPending {
		t.tryFinalize(now)
	}

	if t.state.IsTerminal() {
		return
	}

	secType := eventmodels.SecurityTypeStock
	if key != t.contract.Key() {
		secType = eventmodels.SecurityTypeOption
	}

	if snapshot.IsComplete(t.cfg.RequiredFieldsFor(secType, t.noTradingHours)) {
		if _, owned := t.requests[id]; owned {
			delete(t.requests, id)
			t.gateway.Cancel(id)
			log.Debugf("SymbolTask %s: snapshot for %s complete, released quote %d", t.symbol, key, id)
		}
	}
}

// evaluateScreening applies the price-floor rule the first time a usable
// price is available. Passing the rule does not itself advance state.
func (t *SymbolTask) evaluateScreening() {
	if t.screeningDone {
		return
	}

	value, ok := t.currentPrice()
	if !ok {
		return
	}

	t.screeningDone = true

	candidates := []float64{value}
	for _, field := range []eventmodels.TickField{eventmodels.TickFieldLast, eventmodels.TickFieldAsk, eventmodels.TickFieldBid} {
		if v, has := t.underlyingSnapshot.Get(field); has {
			candidates = append(candidates, v)
		}
	}

	for _, candidate := range candidates {
		if candidate < t.cfg.PriceFloor {
			log.Infof("SymbolTask %s: screened out, price %.2f below floor %.2f", t.symbol, candidate, t.cfg.PriceFloor)
			t.failureReason = "price below floor"
			t.finish(eventmodels.TaskStateAborted)
			return
		}
	}

	log.Debugf("SymbolTask %s: screening passed at %.2f", t.symbol, value)
}

func (t *SymbolTask) currentPrice() (float64, bool) {
	if value, ok := t.underlyingSnapshot.InstrumentValue(); ok {
		return value, true
	}

	if t.hasFallbackPrice {
		return t.fallbackPrice, true
	}

	return 0, false
}

// maybeStartOptionAnalysis begins the core-leg phase once both the price is
// usable and the chain is complete. Order-independent: called from quote
// callbacks, chain callbacks, and ticks alike.
func (t *SymbolTask) maybeStartOptionAnalysis(now time.Time) {
	if t.state != eventmodels.TaskStateActive || t.analyzing {
		return
	}

	if !t.screeningDone || !t.chain.IsComplete() {
		return
	}

	price, ok := t.currentPrice()
	if !ok {
		return
	}

	if t.chain.Len() == 0 {
		t.failureReason = "option chain empty"
		t.finish(eventmodels.TaskStateFailedNoOptions)
		return
	}

	legs, err := t.selectCoreLegs(price)
	if err != nil {
		log.Errorf("SymbolTask %s: %v", t.symbol, err)
		t.failureReason = err.Error()
		t.finish(eventmodels.TaskStateFailedMissingLeg)
		return
	}

	t.analyzing = true
	t.coreRequestedAt = now
	t.state = eventmodels.TaskStateCoreOptionsPending

	for _, leg := range legs {
		t.subscribeOptionLeg(leg, true)
	}

	log.Infof("SymbolTask %s: core legs requested at price %.2f: %v", t.symbol, price, t.coreLegs)
}

// selectCoreLegs picks the three distinct strikes closest to the current
// price; the middle one is at-the-money, the outer two are the strangle
// wings. The four legs are the ATM call, ATM put, upper-wing call and
// lower-wing put.
func (t *SymbolTask) selectCoreLegs(price float64) ([]eventmodels.Contract, error) {
	strikes := t.chain.DistinctStrikes()
	if len(strikes) < 3 {
		return nil, &IncompleteDataError{Reason: "fewer than 3 distinct strikes in chain", Structural: true}
	}

	sort.Slice(strikes, func(i, j int) bool {
		return math.Abs(strikes[i]-price) < math.Abs(strikes[j]-price)
	})

	window := []float64{strikes[0], strikes[1], strikes[2]}
	sort.Float64s(window)

	lowerWing, atm, upperWing := window[0], window[1], window[2]

	atmCall, err := t.chain.FindLeg(atm, eventmodels.RightCall)
	if err != nil {
		return nil, &IncompleteDataError{Reason: "no ATM call at strike window", Structural: true}
	}

	atmPut, err := t.chain.FindLeg(atm, eventmodels.RightPut)
	if err != nil {
		return nil, &IncompleteDataError{Reason: "no ATM put at strike window", Structural: true}
	}

	wingCall, err := t.chain.FindLeg(upperWing, eventmodels.RightCall)
	if err != nil {
		return nil, &IncompleteDataError{Reason: "no strangle call at upper wing", Structural: true}
	}

	wingPut, err := t.chain.FindLeg(lowerWing, eventmodels.RightPut)
	if err != nil {
		return nil, &IncompleteDataError{Reason: "no strangle put at lower wing", Structural: true}
	}

	return []eventmodels.Contract{atmCall, atmPut, wingCall, wingPut}, nil
}

func (t *SymbolTask) subscribeOptionLeg(leg eventmodels.Contract, core bool) {
	reqID := t.gateway.SubmitQuoteSubscription(leg, marketdata.GenericTicksOption, t, nil)
	t.requests[reqID] = eventmodels.RequestKindQuoteSubscription
	t.snapshotKeyByReq[reqID] = leg.Key()
	t.optionContracts[leg.Key()] = leg

	if core {
		t.coreLegs = append(t.coreLegs, leg.Key())
	} else {
		t.rangeLegs = append(t.rangeLegs, leg.Key())
	}
}

// checkCoreLegs re-checks whether all four legs have a usable value; when
// they do it computes the expected move and moves on to the range phase.
// Returns true if the state advanced.
func (t *SymbolTask) checkCoreLegs(now time.Time) bool {
	if t.state != eventmodels.TaskStateCoreOptionsPending {
		return false
	}

	sum := 0.0
	for _, key := range t.coreLegs {
		snapshot, ok := t.optionSnapshots[key]
		if !ok {
			return false
		}

		value, usable := snapshot.InstrumentValue()
		if !usable {
			return false
		}

		sum += value
	}

	// straddle plus strangle premium as a proxy for the market-implied move
	t.expectedMove = sum / 2

	price, _ := t.currentPrice()
	log.Infof("SymbolTask %s: expected move %.2f at price %.2f", t.symbol, t.expectedMove, price)

	t.enterRangePhase(now, price)

	return true
}

// enterRangePhase subscribes every chain entry whose strike falls in the
// band price ± 2*expectedMove, widened by the configured number of extra
// strike increments per side. Range legs are informational: partial data is
// exported as-is and never blocks completion.
func (t *SymbolTask) enterRangePhase(now time.Time, price float64) {
	lowerBand := price - 2*t.expectedMove
	upperBand := price + 2*t.expectedMove

	strikes := t.chain.DistinctStrikes()
	lowIdx := sort.SearchFloat64s(strikes, lowerBand)
	highIdx := sort.SearchFloat64s(strikes, upperBand)
	if highIdx == len(strikes) || strikes[highIdx] > upperBand {
		highIdx--
	}

	// the band can overshoot the chain entirely (fallback close far from the
	// listed strikes); clamp both ends so the window collapses to the nearest
	// strike instead of indexing past the slice
	lowIdx -= t.cfg.RangeExtraStrikes
	if lowIdx > len(strikes)-1 {
		lowIdx = len(strikes) - 1
	}
	if lowIdx < 0 {
		lowIdx = 0
	}

	highIdx += t.cfg.RangeExtraStrikes
	if highIdx > len(strikes)-1 {
		highIdx = len(strikes) - 1
	}
	if highIdx < lowIdx {
		highIdx = lowIdx
	}

	skip := make(map[string]bool, len(t.coreLegs))
	for _, key := range t.coreLegs {
		skip[key] = true
	}

	legs := t.chain.LegsInWindow(strikes[lowIdx], strikes[highIdx], skip)

	t.state = eventmodels.TaskStateRangeOptionsPending
	t.rangeRequestedAt = now

	for _, leg := range legs {
		t.subscribeOptionLeg(leg, false)
	}

	log.Infof("SymbolTask %s: range window [%.2f, %.2f], %d additional legs", t.symbol, strikes[lowIdx], strikes[highIdx], len(legs))

	if len(legs) == 0 {
		t.tryFinalize(now)
	}
}

func (t *SymbolTask) rangeLegsReady() bool {
	for _, key := range t.rangeLegs {
		snapshot, ok := t.optionSnapshots[key]
		if !ok {
			return false
		}

		if _, usable := snapshot.InstrumentValue(); !usable {
			return false
		}
	}

	return true
}

// tryFinalize emits the recommendation once history is complete, analysis
// has run, and the range legs are either all usable or timed out.
func (t *SymbolTask) tryFinalize(now time.Time) {
	if t.state != eventmodels.TaskStateRangeOptionsPending || !t.analyzing {
		return
	}

	if !t.series.IsFinalized() {
		return
	}

	if !t.rangeLegsReady() && now.Sub(t.rangeRequestedAt) <= t.cfg.RangeOptionsTimeout.ToDuration() {
		return
	}

	price, ok := t.currentPrice()
	if !ok {
		return
	}

	averagePercentMove := t.series.AveragePercentMove()

	doubleUp := price + 2*t.expectedMove
	doubleDown := price - 2*t.expectedMove
	usualUpSpike := price + (averagePercentMove/100)*price
	usualDownSpike := price - (averagePercentMove/100)*price

	record := eventmodels.NewRecommendationRecord(t.symbol)
	record.UnderlyingValue = price
	record.UnderlyingBid, _ = t.underlyingSnapshot.Get(eventmodels.TickFieldBid)
	record.UnderlyingAsk, _ = t.underlyingSnapshot.Get(eventmodels.TickFieldAsk)
	record.ExpectedMove = t.expectedMove
	record.AveragePercentMove = averagePercentMove
	record.UpperBoundary = math.Max(doubleUp, usualUpSpike)
	record.LowerBoundary = math.Min(doubleDown, usualDownSpike)
	record.TopMoves = t.series.TopMoves()
	record.Legs = t.collectLegSnapshots()

	t.recommendation = record
	t.finish(eventmodels.TaskStateCompleted)

	log.Infof("SymbolTask %s: completed — boundaries %.2f ... %.2f", t.symbol, record.LowerBoundary, record.UpperBoundary)

	if t.onComplete != nil {
		t.onComplete(record)
	}
}

// collectLegSnapshots exports every leg with a usable value: all four core
// legs by construction, plus whichever range legs reported data in time.
func (t *SymbolTask) collectLegSnapshots() []eventmodels.OptionLegSnapshot {
	keys := make([]string, 0, len(t.coreLegs)+len(t.rangeLegs))
	keys = append(keys, t.coreLegs...)
	keys = append(keys, t.rangeLegs...)

	var legs []eventmodels.OptionLegSnapshot

	for _, key := range keys {
		snapshot, ok := t.optionSnapshots[key]
		if !ok {
			continue
		}

		value, usable := snapshot.InstrumentValue()
		if !usable {
			continue
		}

		contract := t.optionContracts[key]

		leg := eventmodels.OptionLegSnapshot{
			LocalSymbol:     key,
			Strike:          contract.Strike,
			Right:           contract.Right,
			InstrumentValue: value,
		}
		leg.Bid, _ = snapshot.Get(eventmodels.TickFieldBid)
		leg.Ask, _ = snapshot.Get(eventmodels.TickFieldAsk)
		leg.Delta, _ = snapshot.Get(eventmodels.TickFieldDelta)
		leg.Gamma, _ = snapshot.Get(eventmodels.TickFieldGamma)
		leg.Vega, _ = snapshot.Get(eventmodels.TickFieldVega)
		leg.ImpliedVol, _ = snapshot.Get(eventmodels.TickFieldIV)

		legs = append(legs, leg)
	}

	return legs
}

// finish is the single exit path: every terminal transition releases every
// outstanding request exactly once. Re-entry after a terminal state is a
// no-op, so finalize-triggering events arriving late cannot double-emit.
func (t *SymbolTask) finish(state eventmodels.TaskState) {
	if t.state.IsTerminal() {
		return
	}

	t.state = state

	for id := range t.requests {
		t.gateway.Cancel(id)
	}

	t.requests = make(map[eventmodels.RequestID]eventmodels.RequestKind)
}
