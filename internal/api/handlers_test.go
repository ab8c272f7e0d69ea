package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gm-streak/internal/clients_api/gmcontract"
	"gm-streak/internal/features/poller"
	"gm-streak/internal/leaderboard"
	"gm-streak/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
	addrD = "0xdddddddddddddddddddddddddddddddddddddddd"
)

type fakeSource struct {
	snap *poller.Snapshot
	size int
}

func (f *fakeSource) Latest() (poller.Snapshot, bool) {
	if f.snap == nil {
		return poller.Snapshot{}, false
	}
	return *f.snap, true
}

func (f *fakeSource) DisplaySize() int { return f.size }

type fakeUsers struct {
	records map[string]models.UserStreakRecord
	ranks   map[string]int
	err     error
}

func (f *fakeUsers) GetUserData(_ context.Context, address string) (models.UserStreakRecord, error) {
	if f.err != nil {
		return models.UserStreakRecord{}, f.err
	}
	return f.records[address], nil
}

func (f *fakeUsers) GetUserRank(_ context.Context, address string) (int, error) {
	return f.ranks[address], nil
}

type fakeProfiles map[string]*models.SocialProfile

func (f fakeProfiles) Resolve(_ context.Context, address string) *models.SocialProfile {
	return f[address]
}

// countingFetcher answers every address with "no profile".
type countingFetcher struct {
	calls atomic.Int64
}

func (f *countingFetcher) FetchProfiles(_ context.Context, addresses []string) map[string]*models.SocialProfile {
	f.calls.Add(1)
	out := make(map[string]*models.SocialProfile, len(addresses))
	for _, a := range addresses {
		out[a] = nil
	}
	return out
}

func testSnapshot() *poller.Snapshot {
	ranked := leaderboard.Rank([]models.RawEntry{
		{Address: addrA, Streak: 5, TotalActions: 5},
		{Address: addrB, Streak: 10, TotalActions: 12},
		{Address: addrC, Streak: 10, TotalActions: 9},
	})
	ranked[0].Profile = &models.SocialProfile{FID: 2, Username: "bee"}
	return &poller.Snapshot{
		Chain:       "base",
		Seq:         3,
		FetchedAt:   time.Unix(1_700_000_000, 0).UTC(),
		Leaderboard: leaderboard.Result{Ranked: ranked},
		Stats:       &models.GlobalStats{TotalUsers: 3, TotalActions: 26, TodaysActions: 2},
	}
}

func newTestServer(snap *poller.Snapshot, users *fakeUsers, cfg Config) *Server {
	chain, _ := gmcontract.DefaultChain("base")
	return NewServer(cfg, []ChainBackend{{
		Info:   chain,
		Source: &fakeSource{snap: snap, size: 2},
		Reader: users,
	}}, fakeProfiles{addrD: {FID: 9, Username: "dee"}})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(nil, &fakeUsers{}, Config{}).Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(t, newTestServer(testSnapshot(), &fakeUsers{}, Config{}).Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestListChains(t *testing.T) {
	rec := get(t, newTestServer(testSnapshot(), &fakeUsers{}, Config{}).Handler(), "/api/v1/chains")
	require.Equal(t, http.StatusOK, rec.Code)

	var chains []chainView
	decode(t, rec, &chains)
	require.Len(t, chains, 1)
	assert.Equal(t, "base", chains[0].Name)
	assert.Equal(t, int64(8453), chains[0].ChainID)
	assert.True(t, chains[0].Ready)
}

func TestLeaderboard(t *testing.T) {
	h := newTestServer(testSnapshot(), &fakeUsers{}, Config{}).Handler()

	t.Run("default display size", func(t *testing.T) {
		rec := get(t, h, "/api/v1/chains/base/leaderboard")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp leaderboardResponse
		decode(t, rec, &resp)
		require.Len(t, resp.Entries, 2)
		assert.Equal(t, addrB, resp.Entries[0].Address)
		assert.Equal(t, "bee", resp.Entries[0].DisplayName())
		assert.Equal(t, addrC, resp.Entries[1].Address)
		assert.Nil(t, resp.OutOfBand)
	})

	t.Run("out of band from snapshot", func(t *testing.T) {
		rec := get(t, h, "/api/v1/chains/base/leaderboard?address=0x123")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = get(t, h, "/api/v1/chains/base/leaderboard?address="+addrA)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp leaderboardResponse
		decode(t, rec, &resp)
		require.NotNil(t, resp.OutOfBand)
		assert.Equal(t, 3, resp.OutOfBand.Rank)
	})

	t.Run("within limit has no out of band", func(t *testing.T) {
		rec := get(t, h, "/api/v1/chains/base/leaderboard?limit=3&address="+addrA)
		var resp leaderboardResponse
		decode(t, rec, &resp)
		assert.Len(t, resp.Entries, 3)
		assert.Nil(t, resp.OutOfBand)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := get(t, h, "/api/v1/chains/base/leaderboard?limit=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown chain", func(t *testing.T) {
		rec := get(t, h, "/api/v1/chains/solana/leaderboard")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLeaderboardOutOfBandFromContract(t *testing.T) {
	users := &fakeUsers{
		records: map[string]models.UserStreakRecord{addrD: {CurrentStreak: 1, TotalActions: 4, IsRegistered: true}},
		ranks:   map[string]int{addrD: 57},
	}
	h := newTestServer(testSnapshot(), users, Config{}).Handler()

	rec := get(t, h, "/api/v1/chains/base/leaderboard?address="+addrD)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp leaderboardResponse
	decode(t, rec, &resp)
	require.NotNil(t, resp.OutOfBand)
	assert.Equal(t, 57, resp.OutOfBand.Rank)
	assert.Equal(t, "dee", resp.OutOfBand.DisplayName())
}

func TestLeaderboardBeforeFirstPoll(t *testing.T) {
	rec := get(t, newTestServer(nil, &fakeUsers{}, Config{}).Handler(), "/api/v1/chains/base/leaderboard")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetUser(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	users := &fakeUsers{records: map[string]models.UserStreakRecord{
		addrC: {
			Address:             addrC,
			CurrentStreak:       10,
			TotalActions:        9,
			LastActionTimestamp: now.Add(-30 * time.Minute).Unix(),
			IsRegistered:        true,
		},
	}}
	s := newTestServer(testSnapshot(), users, Config{})
	s.now = func() time.Time { return now }
	h := s.Handler()

	rec := get(t, h, "/api/v1/chains/base/users/"+addrC)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp userResponse
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Rank)
	assert.False(t, resp.Status.CanAct)
	assert.Equal(t, 23, resp.Status.Countdown.Hours)
	assert.Equal(t, 30, resp.Status.Countdown.Minutes)

	rec = get(t, h, "/api/v1/chains/base/users/not-an-address")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	users.err = errors.New("rpc down")
	rec = get(t, h, "/api/v1/chains/base/users/"+addrC)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetUserLooksUpAbsentProfileOnce(t *testing.T) {
	users := &fakeUsers{records: map[string]models.UserStreakRecord{
		addrD: {Address: addrD, CurrentStreak: 1, TotalActions: 1, IsRegistered: true},
	}, ranks: map[string]int{addrD: 40}}
	fetcher := &countingFetcher{}
	resolver := leaderboard.NewProfileResolver(fetcher, leaderboard.NewMemoryProfileCache(),
		leaderboard.NewRateGate(time.Nanosecond, nil))

	chain, _ := gmcontract.DefaultChain("base")
	h := NewServer(Config{}, []ChainBackend{{
		Info:   chain,
		Source: &fakeSource{snap: testSnapshot(), size: 2},
		Reader: users,
	}}, resolver).Handler()

	for i := 0; i < 5; i++ {
		rec := get(t, h, "/api/v1/chains/base/users/"+addrD)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp userResponse
		decode(t, rec, &resp)
		assert.Nil(t, resp.Profile)
	}
	for i := 0; i < 3; i++ {
		rec := get(t, h, "/api/v1/chains/base/leaderboard?address="+addrD)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestProfileLookupsShareTheGate(t *testing.T) {
	users := &fakeUsers{records: map[string]models.UserStreakRecord{
		addrD: {Address: addrD, IsRegistered: true},
		"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee": {IsRegistered: true},
	}}
	fetcher := &countingFetcher{}
	resolver := leaderboard.NewProfileResolver(fetcher, nil, leaderboard.NewRateGate(time.Hour, nil))

	chain, _ := gmcontract.DefaultChain("base")
	h := NewServer(Config{}, []ChainBackend{{
		Info:   chain,
		Source: &fakeSource{snap: testSnapshot(), size: 2},
		Reader: users,
	}}, resolver).Handler()

	get(t, h, "/api/v1/chains/base/users/"+addrD)
	rec := get(t, h, "/api/v1/chains/base/users/0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), fetcher.calls.Load(), "second address waits for the gate")
}

func TestStats(t *testing.T) {
	rec := get(t, newTestServer(testSnapshot(), &fakeUsers{}, Config{}).Handler(), "/api/v1/chains/base/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp statsResponse
	decode(t, rec, &resp)
	assert.Equal(t, uint64(26), resp.Stats.TotalActions)
	assert.Equal(t, uint64(2), resp.Stats.TodaysActions)
}

func TestMetricsBasicAuth(t *testing.T) {
	h := newTestServer(testSnapshot(), &fakeUsers{}, Config{MetricsUser: "ops", MetricsPass: "secret"}).Handler()

	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gm_http_requests_total")
}

func TestRateLimitPerIP(t *testing.T) {
	h := newTestServer(testSnapshot(), &fakeUsers{}, Config{RateLimit: 1, RateBurst: 2}).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, h, "/api/v1/chains").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chains", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "other clients keep their own budget")
}
