package poller

// Contract poller for one chain
// Each poll is numbered; a result only replaces the current snapshot if its
// number is newer, so a slow response can never overwrite a fresher one.

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gm-streak/internal/infra/log"
	"gm-streak/internal/leaderboard"
	"gm-streak/internal/metrics"
	"gm-streak/internal/models"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ContractReader is the read side of gmcontract.Client.
type ContractReader interface {
	GetTopUsers(ctx context.Context, limit int) ([]models.RawEntry, error)
	GetGlobalStats(ctx context.Context) (models.GlobalStats, error)
	GetUserData(ctx context.Context, address string) (models.UserStreakRecord, error)
	GetUserRank(ctx context.Context, address string) (int, error)
}

// Snapshot is the latest applied view of a chain.
type Snapshot struct {
	Chain       string                   `json:"chain"`
	Seq         uint64                   `json:"seq"`
	FetchedAt   time.Time                `json:"fetchedAt"`
	Leaderboard leaderboard.Result       `json:"leaderboard"`
	Stats       *models.GlobalStats      `json:"stats,omitempty"`
	User        *models.UserStreakRecord `json:"user,omitempty"`
}

type Config struct {
	Chain      string
	Interval   time.Duration
	FetchLimit int
	Identity   *models.Identity // connected wallet, may be nil
}

type Poller struct {
	cfg        Config
	reader     ContractReader
	reconciler *leaderboard.Reconciler
	now        func() time.Time

	seq     atomic.Uint64
	mu      sync.RWMutex
	applied uint64
	latest  *Snapshot
	onApply []func(Snapshot)
}

func New(cfg Config, reader ContractReader, reconciler *leaderboard.Reconciler) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.FetchLimit < reconciler.DisplaySize() {
		cfg.FetchLimit = reconciler.DisplaySize()
	}
	return &Poller{
		cfg:        cfg,
		reader:     reader,
		reconciler: reconciler,
		now:        time.Now,
	}
}

func (p *Poller) Chain() string { return p.cfg.Chain }

func (p *Poller) DisplaySize() int { return p.reconciler.DisplaySize() }

// OnApply registers a callback run after each applied snapshot. Not safe to call after Run.
func (p *Poller) OnApply(fn func(Snapshot)) {
	p.onApply = append(p.onApply, fn)
}

// Latest returns the last applied snapshot.
func (p *Poller) Latest() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return Snapshot{}, false
	}
	return *p.latest, true
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	log.LogInfo("Poller started", zap.String("chain", p.cfg.Chain), zap.Duration("interval", p.cfg.Interval))
	p.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			log.LogInfo("Poller stopped", zap.String("chain", p.cfg.Chain))
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh runs one poll. It may run concurrently with Run; the newest poll wins.
// Returns the snapshot in effect afterwards.
func (p *Poller) Refresh(ctx context.Context) Snapshot {
	seq := p.seq.Add(1)
	snap := p.poll(ctx, seq)
	if !p.apply(snap) {
		metrics.PollsTotal.WithLabelValues(p.cfg.Chain, "stale").Inc()
		log.LogDebug("Discarding stale poll result", zap.String("chain", p.cfg.Chain), zap.Uint64("seq", seq))
	}
	latest, _ := p.Latest()
	return latest
}

// Close ends the reconciler session; in-flight profile lookups are discarded.
func (p *Poller) Close() {
	p.reconciler.Close()
}

func (p *Poller) poll(ctx context.Context, seq uint64) Snapshot {
	prev, _ := p.Latest()
	snap := Snapshot{Chain: p.cfg.Chain, Seq: seq}

	identity := p.cfg.Identity
	hasIdentity := identity != nil && identity.Address != ""

	var (
		raw      []models.RawEntry
		rawErr   error
		stats    models.GlobalStats
		statsErr error
		user     models.UserStreakRecord
		userErr  error
	)

	pl := pool.New().WithContext(ctx)
	pl.Go(func(ctx context.Context) error {
		raw, rawErr = p.reader.GetTopUsers(ctx, p.cfg.FetchLimit)
		return nil
	})
	pl.Go(func(ctx context.Context) error {
		stats, statsErr = p.reader.GetGlobalStats(ctx)
		return nil
	})
	if hasIdentity {
		pl.Go(func(ctx context.Context) error {
			user, userErr = p.reader.GetUserData(ctx, identity.Address)
			return nil
		})
	}
	_ = pl.Wait()

	failed := false
	if rawErr != nil {
		failed = true
		log.LogWarn("getTopUsers failed, keeping previous leaderboard", zap.String("chain", p.cfg.Chain), zap.Error(rawErr))
		snap.Leaderboard = prev.Leaderboard
	} else {
		snap.Leaderboard = p.reconciler.Reconcile(ctx, raw, identity)
	}

	if statsErr != nil {
		failed = true
		log.LogWarn("getGlobalStats failed", zap.String("chain", p.cfg.Chain), zap.Error(statsErr))
		snap.Stats = prev.Stats
	} else {
		snap.Stats = &stats
	}

	if hasIdentity {
		if userErr != nil {
			failed = true
			log.LogWarn("getUserData failed", zap.String("chain", p.cfg.Chain), zap.Error(userErr))
			snap.User = prev.User
		} else {
			snap.User = &user
			if rawErr == nil {
				snap.Leaderboard.OutOfBand = p.outOfBand(ctx, snap.Leaderboard, identity, user)
			}
		}
	}

	if failed {
		metrics.PollsTotal.WithLabelValues(p.cfg.Chain, "error").Inc()
	}
	snap.FetchedAt = p.now()
	return snap
}

// outOfBand asks the contract for the connected user's rank when the fetched
// top list is too short to contain them.
func (p *Poller) outOfBand(ctx context.Context, res leaderboard.Result, identity *models.Identity, user models.UserStreakRecord) *models.LeaderboardEntry {
	if res.OutOfBand != nil {
		return res.OutOfBand
	}
	addr := models.NormalizeAddress(identity.Address)
	for _, e := range res.Ranked {
		if models.NormalizeAddress(e.Address) == addr {
			return nil
		}
	}
	if !user.IsRegistered {
		return nil
	}

	rank, err := p.reader.GetUserRank(ctx, identity.Address)
	if err != nil {
		log.LogWarn("getUserRank failed", zap.String("chain", p.cfg.Chain), zap.Error(err))
		return nil
	}
	if rank <= p.reconciler.DisplaySize() {
		return nil
	}
	return &models.LeaderboardEntry{
		Address:      addr,
		Streak:       user.CurrentStreak,
		TotalActions: user.TotalActions,
		Rank:         rank,
		Profile:      identity.Profile,
	}
}

func (p *Poller) apply(snap Snapshot) bool {
	p.mu.Lock()
	if snap.Seq <= p.applied {
		p.mu.Unlock()
		return false
	}
	p.applied = snap.Seq
	p.latest = &snap
	callbacks := p.onApply
	p.mu.Unlock()

	metrics.PollsTotal.WithLabelValues(p.cfg.Chain, "applied").Inc()
	metrics.LastPollTimestamp.WithLabelValues(p.cfg.Chain).Set(float64(snap.FetchedAt.Unix()))
	if snap.Stats != nil {
		metrics.TodaysActions.WithLabelValues(p.cfg.Chain).Set(float64(snap.Stats.TodaysActions))
	}

	for _, fn := range callbacks {
		fn(snap)
	}
	return true
}
