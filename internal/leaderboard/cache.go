package leaderboard

import (
	"context"
	"sync"

	"gm-streak/internal/models"
)

// ProfileCache stores lookups keyed by lowercased address.
// Get returns ok=true for a stored nil: the address was looked up and has no profile.
type ProfileCache interface {
	Get(ctx context.Context, address string) (*models.SocialProfile, bool)
	Set(ctx context.Context, address string, profile *models.SocialProfile)
	Reset(ctx context.Context)
}

// MemoryProfileCache is a session-scoped cache with no persistence.
type MemoryProfileCache struct {
	mu       sync.RWMutex
	profiles map[string]*models.SocialProfile
}

func NewMemoryProfileCache() *MemoryProfileCache {
	return &MemoryProfileCache{profiles: make(map[string]*models.SocialProfile)}
}

func (c *MemoryProfileCache) Get(_ context.Context, address string) (*models.SocialProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[models.NormalizeAddress(address)]
	return p, ok
}

func (c *MemoryProfileCache) Set(_ context.Context, address string, profile *models.SocialProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[models.NormalizeAddress(address)] = profile
}

func (c *MemoryProfileCache) Reset(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = make(map[string]*models.SocialProfile)
}

// Len is the number of cached addresses, absences included.
func (c *MemoryProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}
