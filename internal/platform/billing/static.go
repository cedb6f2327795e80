package billing

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/cadence/internal/domain"
)

// StaticResolver assigns tiers from memory. Users without an explicit
// assignment get the default tier.
type StaticResolver struct {
	mu          sync.RWMutex
	defaultTier domain.Tier
	tiers       map[uuid.UUID]domain.Tier
}

// NewStaticResolver creates a resolver that returns defaultTier for every user.
func NewStaticResolver(defaultTier domain.Tier) *StaticResolver {
	if !defaultTier.Valid() {
		defaultTier = domain.TierFree
	}
	return &StaticResolver{
		defaultTier: defaultTier,
		tiers:       make(map[uuid.UUID]domain.Tier),
	}
}

// Set assigns tier to userID.
func (r *StaticResolver) Set(userID uuid.UUID, tier domain.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers[userID] = tier
}

// GetTier returns the tier assigned to userID.
func (r *StaticResolver) GetTier(_ context.Context, userID uuid.UUID) (domain.Tier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if tier, ok := r.tiers[userID]; ok {
		return tier, nil
	}
	return r.defaultTier, nil
}
