package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gm-streak/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGMStatsOnePerDay(t *testing.T) {
	s := NewStore(t.TempDir())
	day1 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveGMStats("base", models.GlobalStats{TotalUsers: 10, TodaysActions: 3}, day1))
	require.NoError(t, s.SaveGMStats("base", models.GlobalStats{TotalUsers: 11, TodaysActions: 5}, day1.Add(2*time.Hour)))
	require.NoError(t, s.SaveGMStats("celo", models.GlobalStats{TotalUsers: 2, TodaysActions: 1}, day1))
	require.NoError(t, s.SaveGMStats("base", models.GlobalStats{TotalUsers: 12, TodaysActions: 7}, day1.AddDate(0, 0, 1)))

	base, err := s.RecentGMStats("base", 7)
	require.NoError(t, err)
	require.Len(t, base, 2)
	assert.Equal(t, "2024-01-02", base[0].Date)
	assert.Equal(t, uint64(5), base[0].TodaysActions, "last write of the day wins")
	assert.Equal(t, uint64(7), base[1].TodaysActions)

	last, err := s.RecentGMStats("base", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "2024-01-03", last[0].Date)

	assert.NoFileExists(t, filepath.Join(s.Dir(), GMStatsFileName+".tmp"))
}

func TestLoadGMStatsMissingOrBlank(t *testing.T) {
	s := NewStore(t.TempDir())

	data, err := s.LoadGMStats()
	require.NoError(t, err)
	assert.Empty(t, data.Entries)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), GMStatsFileName), []byte("  "), 0644))
	data, err = s.LoadGMStats()
	require.NoError(t, err)
	assert.Empty(t, data.Entries)

	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), GMStatsFileName), []byte("{broken"), 0644))
	_, err = s.LoadGMStats()
	assert.Error(t, err)
}

func TestWatchlist(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested"))
	const addr = "0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa"

	added, err := s.AddWatch(42, addr, "base")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddWatch(42, addr, "base")
	require.NoError(t, err)
	assert.False(t, added, "duplicate")

	added, err = s.AddWatch(42, addr, "celo")
	require.NoError(t, err)
	assert.True(t, added)

	require.NoError(t, s.MarkNotified(42, addr, "base", 1_700_000_000))

	data, err := s.LoadWatchlist()
	require.NoError(t, err)
	entries := data.Chats["42"]
	require.Len(t, entries, 2)
	assert.Equal(t, models.NormalizeAddress(addr), entries[0].Address)
	assert.Equal(t, int64(1_700_000_000), entries[0].NotifiedFor)
	assert.Equal(t, int64(0), entries[1].NotifiedFor)

	removed, err := s.RemoveWatch(42, addr)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveWatch(42, addr)
	require.NoError(t, err)
	assert.False(t, removed)

	data, err = s.LoadWatchlist()
	require.NoError(t, err)
	assert.Empty(t, data.Chats)

	_, err = s.AddWatch(1, "  ", "base")
	assert.Error(t, err)
}
