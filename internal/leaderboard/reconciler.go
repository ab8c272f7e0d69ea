package leaderboard

// Leaderboard reconciliation
// Turns raw getTopUsers rows into ranked entries and enriches them with
// Farcaster profiles from the cache or one rate-gated batch lookup

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"gm-streak/internal/infra/log"
	"gm-streak/internal/metrics"
	"gm-streak/internal/models"

	"go.uber.org/zap"
)

// DefaultDisplaySize is how many ranks a leaderboard view shows.
const DefaultDisplaySize = 5

// ProfileFetcher is satisfied by neynar.Client. It must be total:
// failures come back as an empty map, absences as explicit nil entries.
type ProfileFetcher interface {
	FetchProfiles(ctx context.Context, addresses []string) map[string]*models.SocialProfile
}

// Result of one reconciliation pass.
type Result struct {
	Ranked    []models.LeaderboardEntry `json:"ranked"`
	OutOfBand *models.LeaderboardEntry  `json:"outOfBand,omitempty"`
}

// Top returns at most n leading entries.
func (r Result) Top(n int) []models.LeaderboardEntry {
	if n <= 0 || n >= len(r.Ranked) {
		return r.Ranked
	}
	return r.Ranked[:n]
}

type Option func(*Reconciler)

func WithDisplaySize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.displaySize = n
		}
	}
}

func WithGate(g *RateGate) Option {
	return func(r *Reconciler) {
		if g != nil {
			r.gate = g
		}
	}
}

// WithFetchTimeout bounds a single batch lookup.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.fetchTimeout = d
		}
	}
}

// Reconciler owns one session: its cache, its gate and its liveness flag.
type Reconciler struct {
	fetcher      ProfileFetcher
	cache        ProfileCache
	gate         *RateGate
	displaySize  int
	fetchTimeout time.Duration
	closed       atomic.Bool
}

func NewReconciler(fetcher ProfileFetcher, cache ProfileCache, opts ...Option) *Reconciler {
	if cache == nil {
		cache = NewMemoryProfileCache()
	}
	r := &Reconciler{
		fetcher:      fetcher,
		cache:        cache,
		gate:         NewRateGate(DefaultGateInterval, nil),
		displaySize:  DefaultDisplaySize,
		fetchTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) DisplaySize() int { return r.displaySize }

// Close tears the session down. A batch lookup still in flight may finish,
// but its results are dropped.
func (r *Reconciler) Close() {
	r.closed.Store(true)
}

func (r *Reconciler) Closed() bool { return r.closed.Load() }

// Rank filters sentinel addresses and sorts by streak then total actions,
// both descending. Ranks are the 1-based positions after the sort.
func Rank(raw []models.RawEntry) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(raw))
	for _, row := range raw {
		if models.IsSentinelAddress(row.Address) {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			Address:      row.Address,
			Streak:       row.Streak,
			TotalActions: row.TotalActions,
			Rank:         len(entries) + 1,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Streak != entries[j].Streak {
			return entries[i].Streak > entries[j].Streak
		}
		return entries[i].TotalActions > entries[j].TotalActions
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Reconcile never fails: profile lookup problems leave entries without a profile.
// connected may be nil when no wallet is connected.
func (r *Reconciler) Reconcile(ctx context.Context, raw []models.RawEntry, connected *models.Identity) Result {
	entries := Rank(raw)

	var connectedAddr string
	if connected != nil {
		connectedAddr = models.NormalizeAddress(connected.Address)
	}

	var pending []string
	pendingIdx := make(map[string][]int)
	for i := range entries {
		addr := models.NormalizeAddress(entries[i].Address)

		// the caller's own profile is known locally, never look it up
		if connectedAddr != "" && connected.Profile != nil && addr == connectedAddr {
			entries[i].Profile = connected.Profile
			continue
		}

		if profile, ok := r.cache.Get(ctx, addr); ok {
			metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
			entries[i].Profile = profile
			continue
		}
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()

		if _, queued := pendingIdx[addr]; !queued {
			pending = append(pending, addr)
		}
		pendingIdx[addr] = append(pendingIdx[addr], i)
	}

	if len(pending) > 0 && r.fetcher != nil && !r.Closed() {
		if r.gate.Allow() {
			r.applyBatch(ctx, entries, pending, pendingIdx)
		} else {
			metrics.ProfileBatches.WithLabelValues("gated").Inc()
			log.LogDebug("Profile lookup gated, using cache only",
				zap.Int("pending", len(pending)),
				zap.Time("next_open", r.gate.NextOpen()))
		}
	}

	return Result{
		Ranked:    entries,
		OutOfBand: FindOutOfBand(entries, connectedAddr, r.displaySize),
	}
}

func (r *Reconciler) applyBatch(ctx context.Context, entries []models.LeaderboardEntry, pending []string, idx map[string][]int) {
	metrics.ProfileBatches.WithLabelValues("issued").Inc()

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()
	profiles := r.fetcher.FetchProfiles(fetchCtx, pending)

	if r.Closed() {
		metrics.ProfileBatches.WithLabelValues("discarded").Inc()
		log.LogDebug("Session closed during profile lookup, discarding results", zap.Int("results", len(profiles)))
		return
	}

	for addr, profile := range profiles {
		addr = models.NormalizeAddress(addr)
		r.cache.Set(ctx, addr, profile)
		for _, i := range idx[addr] {
			entries[i].Profile = profile
		}
	}
}

// FindOutOfBand returns a copy of the entry for address when it ranks below the
// first n, nil when it is within them or not on the board at all.
func FindOutOfBand(ranked []models.LeaderboardEntry, address string, n int) *models.LeaderboardEntry {
	addr := models.NormalizeAddress(address)
	if addr == "" {
		return nil
	}
	for i := range ranked {
		if models.NormalizeAddress(ranked[i].Address) != addr {
			continue
		}
		if ranked[i].Rank <= n {
			return nil
		}
		entry := ranked[i]
		return &entry
	}
	return nil
}
