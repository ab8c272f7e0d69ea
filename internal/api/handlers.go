package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"gm-streak/internal/features/poller"
	"gm-streak/internal/infra/log"
	"gm-streak/internal/leaderboard"
	"gm-streak/internal/models"
	"gm-streak/internal/streak"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxLeaderboardLimit = 100

type chainView struct {
	Name      string     `json:"name"`
	ChainID   int64      `json:"chainId"`
	Contract  string     `json:"contract"`
	Explorer  string     `json:"explorer"`
	Ready     bool       `json:"ready"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
}

type leaderboardResponse struct {
	Chain     string                    `json:"chain"`
	FetchedAt time.Time                 `json:"fetchedAt"`
	Entries   []models.LeaderboardEntry `json:"entries"`
	OutOfBand *models.LeaderboardEntry  `json:"outOfBand,omitempty"`
}

type userResponse struct {
	Chain   string                  `json:"chain"`
	Record  models.UserStreakRecord `json:"record"`
	Rank    int                     `json:"rank,omitempty"`
	Status  streak.Status           `json:"status"`
	Profile *models.SocialProfile   `json:"profile,omitempty"`
}

type statsResponse struct {
	Chain     string             `json:"chain"`
	FetchedAt time.Time          `json:"fetchedAt"`
	Stats     models.GlobalStats `json:"stats"`
}

// GET /health
func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	ready := 0
	chains := make(map[string]bool, len(s.names))
	for _, name := range s.names {
		_, ok := s.chains[name].Source.Latest()
		chains[name] = ok
		if ok {
			ready++
		}
	}

	status, code := "healthy", http.StatusOK
	if len(s.names) > 0 && ready == 0 {
		status, code = "starting", http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "gm-streak",
		"chains":  chains,
	})
}

// GET /api/v1/chains
func (s *Server) listChains(w http.ResponseWriter, _ *http.Request) {
	out := make([]chainView, 0, len(s.names))
	for _, name := range s.names {
		c := s.chains[name]
		view := chainView{
			Name:     c.Info.Name,
			ChainID:  c.Info.ChainID,
			Contract: c.Info.Contract,
			Explorer: c.Info.Explorer,
		}
		if snap, ok := c.Source.Latest(); ok {
			view.Ready = true
			fetched := snap.FetchedAt
			view.FetchedAt = &fetched
		}
		out = append(out, view)
	}
	respondWithJSON(w, http.StatusOK, out)
}

// snapshot resolves {chain} and its latest snapshot, writing the error response itself.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (ChainBackend, poller.Snapshot, bool) {
	name := mux.Vars(r)["chain"]
	c, ok := s.chains[name]
	if !ok {
		respondWithError(w, http.StatusNotFound, "Unknown chain")
		return ChainBackend{}, poller.Snapshot{}, false
	}
	snap, ok := c.Source.Latest()
	if !ok {
		respondWithError(w, http.StatusServiceUnavailable, "Chain data not loaded yet")
		return c, poller.Snapshot{}, false
	}
	return c, snap, true
}

// GET /api/v1/chains/{chain}/leaderboard?limit=&address=
func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	c, snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}

	limit := c.Source.DisplaySize()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLeaderboardLimit {
			respondWithError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	resp := leaderboardResponse{
		Chain:     c.Info.Name,
		FetchedAt: snap.FetchedAt,
		Entries:   snap.Leaderboard.Top(limit),
	}
	if resp.Entries == nil {
		resp.Entries = []models.LeaderboardEntry{}
	}

	if addr := r.URL.Query().Get("address"); addr != "" {
		if !common.IsHexAddress(addr) {
			respondWithError(w, http.StatusBadRequest, "Invalid address")
			return
		}
		resp.OutOfBand = s.outOfBand(r.Context(), c, snap.Leaderboard, addr, limit)
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// outOfBand finds address below the first limit ranks, first in the snapshot,
// then through the contract when the snapshot does not list it.
func (s *Server) outOfBand(ctx context.Context, c ChainBackend, res leaderboard.Result, address string, limit int) *models.LeaderboardEntry {
	addr := models.NormalizeAddress(address)
	for _, e := range res.Ranked {
		if models.NormalizeAddress(e.Address) == addr {
			return leaderboard.FindOutOfBand(res.Ranked, addr, limit)
		}
	}
	if res.OutOfBand != nil && models.NormalizeAddress(res.OutOfBand.Address) == addr {
		if res.OutOfBand.Rank > limit {
			entry := *res.OutOfBand
			return &entry
		}
		return nil
	}
	if c.Reader == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	record, err := c.Reader.GetUserData(ctx, addr)
	if err != nil || !record.IsRegistered {
		if err != nil {
			log.LogWarn("getUserData failed for out-of-band entry", zap.String("address", addr), zap.Error(err))
		}
		return nil
	}
	rank, err := c.Reader.GetUserRank(ctx, addr)
	if err != nil || rank <= limit {
		return nil
	}
	return &models.LeaderboardEntry{
		Address:      addr,
		Streak:       record.CurrentStreak,
		TotalActions: record.TotalActions,
		Rank:         rank,
		Profile:      s.profileFor(ctx, res, addr),
	}
}

// profileFor reuses an enriched snapshot row before asking the profile resolver.
func (s *Server) profileFor(ctx context.Context, res leaderboard.Result, addr string) *models.SocialProfile {
	for _, e := range res.Ranked {
		if models.NormalizeAddress(e.Address) == addr && e.Profile != nil {
			return e.Profile
		}
	}
	if s.profiles == nil {
		return nil
	}
	return s.profiles.Resolve(ctx, addr)
}

// GET /api/v1/chains/{chain}/users/{address}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["chain"]
	c, ok := s.chains[name]
	if !ok {
		respondWithError(w, http.StatusNotFound, "Unknown chain")
		return
	}
	address := mux.Vars(r)["address"]
	if !common.IsHexAddress(address) {
		respondWithError(w, http.StatusBadRequest, "Invalid address")
		return
	}
	if c.Reader == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Chain reader unavailable")
		return
	}
	addr := models.NormalizeAddress(address)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	record, err := c.Reader.GetUserData(ctx, addr)
	if err != nil {
		log.LogError("getUserData failed", zap.String("chain", name), zap.String("address", addr), zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "Failed to read contract")
		return
	}

	resp := userResponse{
		Chain:  name,
		Record: record,
		Status: streak.StatusAt(record, s.now()),
	}

	snap, _ := c.Source.Latest()
	for _, e := range snap.Leaderboard.Ranked {
		if models.NormalizeAddress(e.Address) == addr {
			resp.Rank = e.Rank
			break
		}
	}
	if resp.Rank == 0 && record.IsRegistered {
		if rank, err := c.Reader.GetUserRank(ctx, addr); err == nil {
			resp.Rank = rank
		}
	}
	resp.Profile = s.profileFor(ctx, snap.Leaderboard, addr)

	respondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/chains/{chain}/stats
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	c, snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	if snap.Stats == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Stats not loaded yet")
		return
	}
	respondWithJSON(w, http.StatusOK, statsResponse{
		Chain:     c.Info.Name,
		FetchedAt: snap.FetchedAt,
		Stats:     *snap.Stats,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
