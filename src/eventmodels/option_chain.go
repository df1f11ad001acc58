package eventmodels

import (
	"fmt"
	"sort"
)

// OptionChain collects the legs returned by one or more chain lookups,
// keyed by the contract's local symbol so that repeated lookups reconcile
// to a single entry per actual instrument.
type OptionChain struct {
	entries  map[string]Contract
	complete bool
}

func NewOptionChain() *OptionChain {
	return &OptionChain{
		entries: make(map[string]Contract),
	}
}

func (c *OptionChain) AddEntry(contract Contract) {
	c.entries[contract.Key()] = contract
}

func (c *OptionChain) Len() int {
	return len(c.entries)
}

// MarkComplete records end-of-data. It fires at most once: the terminating
// callback and the chain timeout race, whichever is observed first wins.
func (c *OptionChain) MarkComplete() bool {
	if c.complete {
		return false
	}

	c.complete = true
	return true
}

func (c *OptionChain) IsComplete() bool {
	return c.complete
}

func (c *OptionChain) Entries() []Contract {
	out := make([]Contract, 0, len(c.entries))
	for _, contract := range c.entries {
		out = append(out, contract)
	}

	return out
}

func (c *OptionChain) Get(localSymbol string) (Contract, bool) {
	contract, ok := c.entries[localSymbol]
	return contract, ok
}

// DistinctStrikes returns the sorted unique strikes present in the chain.
func (c *OptionChain) DistinctStrikes() []float64 {
	seen := make(map[float64]bool)
	var strikes []float64

	for _, contract := range c.entries {
		if !seen[contract.Strike] {
			seen[contract.Strike] = true
			strikes = append(strikes, contract.Strike)
		}
	}

	sort.Float64s(strikes)

	return strikes
}

// FindLeg locates the contract at an exact strike and right.
func (c *OptionChain) FindLeg(strike float64, right OptionRight) (Contract, error) {
	for _, contract := range c.entries {
		if contract.Strike == strike && contract.Right == right {
			return contract, nil
		}
	}

	return Contract{}, fmt.Errorf("OptionChain:FindLeg(): no %s at strike %.2f", right, strike)
}

// LegsInWindow returns every leg whose strike falls within [lower, upper],
// excluding the local symbols listed in skip.
func (c *OptionChain) LegsInWindow(lower, upper float64, skip map[string]bool) []Contract {
	var legs []Contract

	for key, contract := range c.entries {
		if skip[key] {
			continue
		}

		if contract.Strike >= lower && contract.Strike <= upper {
			legs = append(legs, contract)
		}
	}

	sort.Slice(legs, func(i, j int) bool {
		if legs[i].Strike != legs[j].Strike {
			return legs[i].Strike < legs[j].Strike
		}
		return legs[i].Right < legs[j].Right
	})

	return legs
}
