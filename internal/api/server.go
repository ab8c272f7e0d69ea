package api

// Read-only JSON API over the poller snapshots

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"gm-streak/internal/clients_api/gmcontract"
	"gm-streak/internal/features/poller"
	"gm-streak/internal/infra/log"
	"gm-streak/internal/metrics"
	"gm-streak/internal/models"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SnapshotSource is satisfied by *poller.Poller.
type SnapshotSource interface {
	Latest() (poller.Snapshot, bool)
	DisplaySize() int
}

// UserReader is the per-address read side of gmcontract.Client.
type UserReader interface {
	GetUserData(ctx context.Context, address string) (models.UserStreakRecord, error)
	GetUserRank(ctx context.Context, address string) (int, error)
}

// ProfileLookup is satisfied by leaderboard.ProfileResolver. Resolve must be
// cached and throttled: it is driven by untrusted requests.
type ProfileLookup interface {
	Resolve(ctx context.Context, address string) *models.SocialProfile
}

// ChainBackend bundles everything the API knows about one chain.
type ChainBackend struct {
	Info   gmcontract.Chain
	Source SnapshotSource
	Reader UserReader
}

type Config struct {
	ListenAddr  string
	MetricsUser string
	MetricsPass string
	RateLimit   rate.Limit
	RateBurst   int
}

type Server struct {
	cfg      Config
	chains   map[string]ChainBackend
	names    []string
	profiles ProfileLookup
	limiter  *ipLimiter
	now      func() time.Time
}

// NewServer builds the API. profiles may be nil.
func NewServer(cfg Config, chains []ChainBackend, profiles ProfileLookup) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 30
	}

	s := &Server{
		cfg:      cfg,
		chains:   make(map[string]ChainBackend, len(chains)),
		profiles: profiles,
		limiter:  newIPLimiter(cfg.RateLimit, cfg.RateBurst),
		now:      time.Now,
	}
	for _, c := range chains {
		s.chains[c.Info.Name] = c
		s.names = append(s.names, c.Info.Name)
	}
	sort.Strings(s.names)
	return s
}

// Handler returns the full router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not found")
	})

	standard := r.PathPrefix("/").Subrouter()
	standard.Use(monitorMiddleware)
	standard.Use(s.limiter.middleware)

	metricsHandler := promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
	standard.Handle("/metrics", basicAuth(s.cfg.MetricsUser, s.cfg.MetricsPass, metricsHandler)).Methods("GET")
	standard.HandleFunc("/health", s.health).Methods("GET")

	api := standard.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/chains", s.listChains).Methods("GET")
	api.HandleFunc("/chains/{chain}/leaderboard", s.getLeaderboard).Methods("GET")
	api.HandleFunc("/chains/{chain}/users/{address}", s.getUser).Methods("GET")
	api.HandleFunc("/chains/{chain}/stats", s.getStats).Methods("GET")

	cors := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
	)
	return cors(r)
}

// Run serves until ctx is done, then shuts down within 10 seconds.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go s.limiter.cleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.LogInfo("API server listening", zap.String("addr", addr), zap.Strings("chains", s.names))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.LogWarn("API server shutdown error", zap.Error(err))
		return err
	}
	log.LogInfo("API server stopped")
	return nil
}
