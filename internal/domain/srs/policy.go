// Package srs implements the spaced repetition rules: the tier-gated interval
// tables and the pure schedule transitions driven by review outcomes.
package srs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/phrazzld/cadence/internal/domain"
)

// ErrInvalidIntervalTable is returned when an interval configuration breaks
// the ordering rules between or within tiers.
var ErrInvalidIntervalTable = errors.New("invalid interval table")

// DefaultIntervals returns the built-in interval tables, in days.
func DefaultIntervals() map[domain.Tier][]int {
	return map[domain.Tier][]int{
		domain.TierFree:    {1, 3, 7},
		domain.TierBasic:   {1, 3, 7, 14, 30},
		domain.TierPremium: {1, 3, 7, 14, 30, 60},
		domain.TierPro:     {1, 3, 7, 14, 30, 60, 120, 180},
	}
}

// IntervalPolicy maps a tier to its ordered review intervals.
// A policy is immutable after construction and safe for concurrent use.
type IntervalPolicy struct {
	tables map[domain.Tier][]int
}

// NewDefaultIntervalPolicy creates a policy using DefaultIntervals.
func NewDefaultIntervalPolicy() *IntervalPolicy {
	p, err := NewIntervalPolicy(DefaultIntervals())
	if err != nil {
		// ALLOW-PANIC: the built-in tables are a program invariant
		panic(fmt.Sprintf("default interval tables are invalid: %v", err))
	}
	return p
}

// NewIntervalPolicy creates a policy from explicit tables.
//
// Every supported tier must have a table. Each table must be non-empty,
// positive and strictly increasing. Each lower tier's table must appear, in
// order, inside every higher tier's table, and the longest interval must grow
// strictly from one tier to the next.
func NewIntervalPolicy(tables map[domain.Tier][]int) (*IntervalPolicy, error) {
	copied := make(map[domain.Tier][]int, len(tables))
	for tier, table := range tables {
		if !tier.Valid() {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidIntervalTable, domain.ErrUnknownTier, tier)
		}
		copied[tier] = slices.Clone(table)
	}

	if err := validateTables(copied); err != nil {
		return nil, err
	}

	return &IntervalPolicy{tables: copied}, nil
}

// NewIntervalPolicyFromNames creates a policy from tables keyed by tier name,
// as they appear in configuration. An empty map yields the default policy.
func NewIntervalPolicyFromNames(named map[string][]int) (*IntervalPolicy, error) {
	if len(named) == 0 {
		return NewDefaultIntervalPolicy(), nil
	}

	tables := make(map[domain.Tier][]int, len(named))
	for name, table := range named {
		tier, err := domain.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidIntervalTable, err)
		}
		tables[tier] = table
	}

	return NewIntervalPolicy(tables)
}

// Intervals returns the interval table for tier, in days.
// An unknown tier falls back to the free tier's table. The returned slice is a
// copy and may be modified by the caller.
func (p *IntervalPolicy) Intervals(tier domain.Tier) []int {
	return slices.Clone(p.table(tier))
}

// IntervalFor returns the interval in days at index for tier, clamping the
// index into the table's bounds.
func (p *IntervalPolicy) IntervalFor(tier domain.Tier, index int) int {
	table := p.table(tier)
	return table[clampIndex(index, len(table))]
}

// MaxIndex returns the highest valid interval index for tier.
func (p *IntervalPolicy) MaxIndex(tier domain.Tier) int {
	return len(p.table(tier)) - 1
}

func (p *IntervalPolicy) table(tier domain.Tier) []int {
	if table, ok := p.tables[tier]; ok {
		return table
	}
	return p.tables[domain.TierFree]
}

func validateTables(tables map[domain.Tier][]int) error {
	tiers := domain.Tiers()

	for _, tier := range tiers {
		table, ok := tables[tier]
		if !ok || len(table) == 0 {
			return fmt.Errorf("%w: tier %s has no intervals", ErrInvalidIntervalTable, tier)
		}
		for i, days := range table {
			if days <= 0 {
				return fmt.Errorf("%w: tier %s interval %d must be positive, got %d",
					ErrInvalidIntervalTable, tier, i, days)
			}
			if i > 0 && days <= table[i-1] {
				return fmt.Errorf("%w: tier %s intervals must be strictly increasing",
					ErrInvalidIntervalTable, tier)
			}
		}
	}

	for i, lower := range tiers {
		for _, higher := range tiers[i+1:] {
			if !isSubsequence(tables[lower], tables[higher]) {
				return fmt.Errorf("%w: tier %s intervals must all appear in tier %s",
					ErrInvalidIntervalTable, lower, higher)
			}
		}
		if i > 0 {
			prev := tables[tiers[i-1]]
			cur := tables[lower]
			if cur[len(cur)-1] <= prev[len(prev)-1] {
				return fmt.Errorf("%w: tier %s longest interval must exceed tier %s",
					ErrInvalidIntervalTable, lower, tiers[i-1])
			}
		}
	}

	return nil
}

// isSubsequence reports whether every element of sub appears in seq in the same order.
func isSubsequence(sub, seq []int) bool {
	j := 0
	for _, v := range seq {
		if j < len(sub) && sub[j] == v {
			j++
		}
	}
	return j == len(sub)
}

func clampIndex(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n-1 {
		return n - 1
	}
	return index
}
