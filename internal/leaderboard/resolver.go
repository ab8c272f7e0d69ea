package leaderboard

import (
	"context"
	"time"

	"gm-streak/internal/infra/log"
	"gm-streak/internal/metrics"
	"gm-streak/internal/models"

	"go.uber.org/zap"
)

// ProfileResolver answers single-address profile questions for views outside
// a reconciliation pass. It reads the same cache and takes the same gate as
// the reconcilers, so a known absence is never looked up again.
type ProfileResolver struct {
	fetcher ProfileFetcher
	cache   ProfileCache
	gate    *RateGate
	timeout time.Duration
}

func NewProfileResolver(fetcher ProfileFetcher, cache ProfileCache, gate *RateGate) *ProfileResolver {
	if cache == nil {
		cache = NewMemoryProfileCache()
	}
	if gate == nil {
		gate = NewRateGate(DefaultGateInterval, nil)
	}
	return &ProfileResolver{
		fetcher: fetcher,
		cache:   cache,
		gate:    gate,
		timeout: 10 * time.Second,
	}
}

// Resolve returns the profile of address, or nil when it has none, the gate is
// closed or the lookup failed. Only definite answers are cached.
func (r *ProfileResolver) Resolve(ctx context.Context, address string) *models.SocialProfile {
	addr := models.NormalizeAddress(address)
	if addr == "" {
		return nil
	}

	if profile, ok := r.cache.Get(ctx, addr); ok {
		metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
		return profile
	}
	metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()

	if r.fetcher == nil {
		return nil
	}
	if !r.gate.Allow() {
		metrics.ProfileBatches.WithLabelValues("gated").Inc()
		log.LogDebug("Single profile lookup gated", zap.String("address", addr), zap.Time("next_open", r.gate.NextOpen()))
		return nil
	}
	metrics.ProfileBatches.WithLabelValues("issued").Inc()

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	profile, ok := r.fetcher.FetchProfiles(fetchCtx, []string{addr})[addr]
	if !ok {
		return nil
	}
	r.cache.Set(ctx, addr, profile)
	return profile
}
