package neynar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrAlice = "0x1111111111111111111111111111111111111111"
	addrBob   = "0x2222222222222222222222222222222222222222"
)

const bulkByAddressBody = `{
  "0x1111111111111111111111111111111111111111": [
    {
      "fid": 42,
      "username": "alice",
      "display_name": "Alice",
      "pfp_url": "https://img.example/alice.png",
      "follower_count": 120,
      "following_count": 80,
      "verifications": ["0x1111111111111111111111111111111111111111"],
      "profile": {"bio": {"text": "gm every day"}}
    }
  ]
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetchProfilesEmptyInputMakesNoRequest(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key"})

	got := c.FetchProfiles(context.Background(), nil)
	assert.Empty(t, got)
	assert.Equal(t, int64(0), hits.Load())
}

func TestFetchProfilesOneBatchWithExplicitAbsence(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/bulk-by-address", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("api_key"))
		assert.Equal(t, addrAlice+","+addrBob, r.URL.Query().Get("addresses"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(bulkByAddressBody))
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key"})

	got := c.FetchProfiles(context.Background(), []string{strings.ToUpper(addrAlice[:2]) + addrAlice[2:], addrBob, addrBob})
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), hits.Load(), "exactly one batch request")

	alice := got[addrAlice]
	require.NotNil(t, alice)
	assert.Equal(t, uint64(42), alice.FID)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, "Alice", alice.DisplayName)
	assert.Equal(t, "gm every day", alice.Bio)
	assert.Equal(t, int64(120), alice.FollowerCount)
	assert.Equal(t, []string{addrAlice}, alice.VerifiedAddresses)

	bob, ok := got[addrBob]
	assert.True(t, ok, "absent address is present as an explicit nil")
	assert.Nil(t, bob)
}

func TestFetchProfilesMissingKey(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bulkByAddressBody))
	})
	c := NewClient(Config{BaseURL: srv.URL})

	assert.Empty(t, c.FetchProfiles(context.Background(), []string{addrAlice}))
	assert.Equal(t, int64(0), hits.Load())

	_, err := c.LookupByAddresses(context.Background(), []string{addrAlice})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchProfilesNonSuccessIsEmpty(t *testing.T) {
	srv, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "bad"})

	assert.Empty(t, c.FetchProfiles(context.Background(), []string{addrAlice}))
	assert.Equal(t, int64(1), hits.Load())
}

func TestFetchProfilesMalformedBodyIsEmpty(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["not", "an", "object"]`))
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key"})

	assert.Empty(t, c.FetchProfiles(context.Background(), []string{addrAlice}))

	_, err := c.LookupByAddresses(context.Background(), []string{addrAlice})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestLookupByAddressesUnexpectedValueIsAbsence(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"` + addrAlice + `": {"fid": 1}, "` + addrBob + `": []}`))
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key"})

	got, err := c.LookupByAddresses(context.Background(), []string{addrAlice, addrBob})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Nil(t, got[addrAlice])
	assert.Nil(t, got[addrBob])
}

func TestRetriesOnServerErrorWhenEnabled(t *testing.T) {
	var calls atomic.Int64
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(bulkByAddressBody))
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key", MaxRetries: 1})

	got, err := c.LookupByAddresses(context.Background(), []string{addrAlice})
	require.NoError(t, err)
	assert.NotNil(t, got[addrAlice])
	assert.Equal(t, int64(2), calls.Load())
}

func TestLookupByFIDs(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/bulk", r.URL.Path)
		if r.URL.Query().Get("fids") == "42" {
			w.Write([]byte(`{"users":[{"fid":42,"username":"alice"}]}`))
			return
		}
		assert.Equal(t, "42,7", r.URL.Query().Get("fids"))
		w.Write([]byte(`{"users":[{"fid":42,"username":"alice"},{"fid":7,"username":"dwr","verifications":null}]}`))
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key"})

	got, err := c.LookupByFIDs(context.Background(), []uint64{42, 7})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "dwr", got[1].Username)
	assert.Empty(t, got[1].VerifiedAddresses)

	one, err := c.ProfileByFID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), one.FID)
}

func TestProfileByAddress(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bulkByAddressBody))
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key"})

	p, err := c.ProfileByAddress(context.Background(), addrAlice)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "alice", p.Username)

	none, err := c.ProfileByAddress(context.Background(), addrBob)
	require.NoError(t, err)
	assert.Nil(t, none)
}
