package domain

import (
	"fmt"
	"strings"
)

// Tier is the subscription level of a user. It selects the interval table
// used to space out reviews.
type Tier string

// Supported tiers, ordered from the shortest to the longest review cadence.
const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
	TierPro     Tier = "pro"
)

// orderedTiers lists every tier from lowest to highest.
var orderedTiers = []Tier{TierFree, TierBasic, TierPremium, TierPro}

// Tiers returns all known tiers ordered from lowest to highest.
func Tiers() []Tier {
	out := make([]Tier, len(orderedTiers))
	copy(out, orderedTiers)
	return out
}

// ParseTier converts a tier name into a Tier, ignoring case and surrounding whitespace.
// It returns ErrUnknownTier for names outside the supported set.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
	return t, nil
}

// Valid reports whether t is one of the supported tiers.
func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// Rank returns the position of t in the tier ordering, or -1 for an unknown tier.
func (t Tier) Rank() int {
	for i, known := range orderedTiers {
		if known == t {
			return i
		}
	}
	return -1
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}
