package eventmodels

import "fmt"

type SecurityType string

const (
	SecurityTypeStock  SecurityType = "STK"
	SecurityTypeOption SecurityType = "OPT"
)

type OptionRight string

const (
	RightCall OptionRight = "C"
	RightPut  OptionRight = "P"
)

// Contract identifies a single tradable instrument. Immutable once built:
// tasks pass copies around, never mutate a resolved contract.
type Contract struct {
	Symbol      StockSymbol  `json:"symbol"`
	SecType     SecurityType `json:"sec_type"`
	Currency    string       `json:"currency"`
	Exchange    string       `json:"exchange"`
	Expiry      string       `json:"expiry,omitempty"` // YYYYMMDD, options only
	Strike      float64      `json:"strike,omitempty"`
	Right       OptionRight  `json:"right,omitempty"`
	LocalSymbol string       `json:"local_symbol,omitempty"`
	ConID       int64        `json:"con_id,omitempty"`
}

// Key is the stable dedup key: two chain lookups may return structurally
// distinct objects for the same instrument and must reconcile on this.
func (c Contract) Key() string {
	if c.LocalSymbol != "" {
		return c.LocalSymbol
	}

	return c.Symbol.String()
}

func (c Contract) Description() string {
	if c.SecType == SecurityTypeOption {
		return fmt.Sprintf("%s %s %s%.2f", c.Symbol, c.Expiry, c.Right, c.Strike)
	}

	return c.Symbol.String()
}

func NewStockContract(symbol StockSymbol) Contract {
	return Contract{
		Symbol:   symbol,
		SecType:  SecurityTypeStock,
		Currency: "USD",
		Exchange: "SMART",
	}
}

// NewOptionChainContract builds the wildcard contract used to enumerate a
// chain: no strike and no right, so the lookup returns every leg at expiry.
func NewOptionChainContract(symbol StockSymbol, expiry string) Contract {
	return Contract{
		Symbol:   symbol,
		SecType:  SecurityTypeOption,
		Currency: "USD",
		Exchange: "SMART",
		Expiry:   expiry,
	}
}
