package eventmodels

import "time"

type RequestID int64

type RequestKind string

const (
	RequestKindContractLookup    RequestKind = "contract_lookup"
	RequestKindChainLookup       RequestKind = "chain_lookup"
	RequestKindQuoteSubscription RequestKind = "quote_subscription"
	RequestKindHistorySeries     RequestKind = "history_series"
)

// MarketRequest tracks one outstanding request against the market data
// service. The gateway owns it while queued or in flight; the issuing task
// keeps the id and must release it on every exit path.
type MarketRequest struct {
	ID          RequestID
	Kind        RequestKind
	Target      Contract
	SubmittedAt time.Time
}
