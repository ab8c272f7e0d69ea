package commands

// Shared construction of clients, caches and pollers for every command

import (
	"context"
	"fmt"
	"sync"

	bot "gm-streak/bots_monitor"
	"gm-streak/internal/api"
	"gm-streak/internal/clients_api/gmcontract"
	"gm-streak/internal/clients_api/neynar"
	"gm-streak/internal/features/poller"
	"gm-streak/internal/infra/config"
	logging "gm-streak/internal/infra/log"
	"gm-streak/internal/leaderboard"
	"gm-streak/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

type chainRuntime struct {
	info   gmcontract.Chain
	client *gmcontract.Client
	poller *poller.Poller
}

type runtime struct {
	chains   []*chainRuntime
	neynar   *neynar.Client
	cache    leaderboard.ProfileCache
	redis    *redis.Client
	identity *models.Identity
	gate     *leaderboard.RateGate
}

// chainFromConfig overlays configured values on the built-in deployment.
func chainFromConfig(name string, cc config.ChainConfig) gmcontract.Chain {
	chain, err := gmcontract.DefaultChain(name)
	if err != nil {
		chain = gmcontract.Chain{Name: name}
	}
	if cc.ChainID != 0 {
		chain.ChainID = cc.ChainID
	}
	if cc.RPCURL != "" {
		chain.RPCURL = cc.RPCURL
	}
	if cc.Contract != "" {
		chain.Contract = cc.Contract
	}
	if cc.Explorer != "" {
		chain.Explorer = cc.Explorer
	}
	return chain
}

// selectChains returns the enabled chains, or only name when it is set.
func selectChains(c *config.Config, name string) ([]gmcontract.Chain, error) {
	var out []gmcontract.Chain
	for _, n := range c.EnabledChains() {
		if name != "" && n != name {
			continue
		}
		chain := chainFromConfig(n, c.Chains[n])
		if err := chain.Validate(); err != nil {
			return nil, err
		}
		out = append(out, chain)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q is not enabled", gmcontract.ErrUnknownChain, name)
	}
	return out, nil
}

func newProfileCache(c *config.Config) (leaderboard.ProfileCache, *redis.Client) {
	if c.Cache.RedisAddr == "" {
		return leaderboard.NewMemoryProfileCache(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.Cache.RedisAddr,
		Password: c.Cache.RedisPassword,
		DB:       c.Cache.RedisDB,
	})
	logging.LogInfo("Using Redis profile cache", zap.String("addr", c.Cache.RedisAddr), zap.Duration("ttl", c.Cache.TTL))
	return leaderboard.NewRedisProfileCache(client, c.Cache.TTL), client
}

// resolveIdentity builds the connected identity from config. A configured
// username is used as is; otherwise Neynar fills the profile in, by fid when
// one is configured and by address when not.
func resolveIdentity(ctx context.Context, c *config.Config, client *neynar.Client) *models.Identity {
	if c.Identity.Address == "" {
		return nil
	}
	id := &models.Identity{Address: models.NormalizeAddress(c.Identity.Address)}
	configured := &models.SocialProfile{
		FID:         c.Identity.FID,
		Username:    c.Identity.Username,
		DisplayName: c.Identity.DisplayName,
		PfpURL:      c.Identity.PfpURL,
	}
	if configured.Username != "" {
		id.Profile = configured
		return id
	}

	if client.HasAPIKey() {
		var (
			profile *models.SocialProfile
			err     error
		)
		if configured.FID != 0 {
			profile, err = client.ProfileByFID(ctx, configured.FID)
		} else {
			profile, err = client.ProfileByAddress(ctx, id.Address)
		}
		switch {
		case err != nil:
			logging.LogWarn("Failed to resolve connected profile", zap.Uint64("fid", configured.FID), zap.Error(err))
		case profile != nil:
			if configured.DisplayName != "" {
				profile.DisplayName = configured.DisplayName
			}
			if configured.PfpURL != "" {
				profile.PfpURL = configured.PfpURL
			}
			id.Profile = profile
			return id
		}
	}

	if configured.FID != 0 {
		id.Profile = configured
	}
	return id
}

// buildRuntime dials every selected chain and wires one poller per chain.
// The profile cache and the batch gate are shared across chains and the API.
func buildRuntime(ctx context.Context, c *config.Config, chainName string) (*runtime, error) {
	chains, err := selectChains(c, chainName)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		neynar: neynar.NewClient(neynar.Config{
			BaseURL:        c.Neynar.BaseURL,
			APIKey:         c.Neynar.APIKey,
			RequestTimeout: c.Neynar.RequestTimeout,
			MaxRetries:     c.Neynar.MaxRetries,
		}),
	}
	if !rt.neynar.HasAPIKey() {
		logging.LogWarn("Neynar API key not set, leaderboard shows addresses only")
	}
	rt.cache, rt.redis = newProfileCache(c)
	rt.identity = resolveIdentity(ctx, c, rt.neynar)

	rt.gate = leaderboard.NewRateGate(c.App.ProfileGate, nil)
	for _, chain := range chains {
		client, err := gmcontract.Dial(ctx, chain)
		if err != nil {
			rt.close()
			return nil, err
		}
		rec := leaderboard.NewReconciler(rt.neynar, rt.cache,
			leaderboard.WithDisplaySize(c.App.LeaderboardSize),
			leaderboard.WithGate(rt.gate))
		p := poller.New(poller.Config{
			Chain:      chain.Name,
			Interval:   c.App.PollInterval,
			FetchLimit: c.App.FetchLimit,
			Identity:   rt.identity,
		}, client, rec)

		rt.chains = append(rt.chains, &chainRuntime{info: chain, client: client, poller: p})
		logging.LogInfo("Chain ready", zap.String("chain", chain.Name), zap.String("contract", chain.Contract))
	}
	return rt, nil
}

func (rt *runtime) close() {
	for _, c := range rt.chains {
		c.poller.Close()
		c.client.Close()
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			logging.LogWarn("Failed to close redis client", zap.Error(err))
		}
	}
}

// warmUp runs the first poll of every chain in parallel so commands started
// right after it see a snapshot.
func (rt *runtime) warmUp(ctx context.Context) {
	p := pool.New().WithMaxGoroutines(4)
	for _, c := range rt.chains {
		c := c
		p.Go(func() {
			c.poller.Refresh(ctx)
		})
	}
	p.Wait()
}

// start launches one poll loop per chain.
func (rt *runtime) start(ctx context.Context, wg *sync.WaitGroup) {
	for _, c := range rt.chains {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.poller.Run(ctx)
		}()
	}
}

func (rt *runtime) apiBackends() []api.ChainBackend {
	out := make([]api.ChainBackend, 0, len(rt.chains))
	for _, c := range rt.chains {
		out = append(out, api.ChainBackend{Info: c.info, Source: c.poller, Reader: c.client})
	}
	return out
}

func (rt *runtime) botChains() []bot.Chain {
	out := make([]bot.Chain, 0, len(rt.chains))
	for _, c := range rt.chains {
		out = append(out, bot.Chain{Info: c.info, Source: c.poller, Reader: c.client})
	}
	return out
}

func (rt *runtime) apiServer(c *config.Config) *api.Server {
	return api.NewServer(api.Config{
		ListenAddr:  c.API.ListenAddr,
		MetricsUser: c.API.MetricsUser,
		MetricsPass: c.API.MetricsPass,
	}, rt.apiBackends(), leaderboard.NewProfileResolver(rt.neynar, rt.cache, rt.gate))
}
