package fs

import (
	"fmt"
	"sort"
	"time"

	logging "gm-streak/internal/infra/log"
	"gm-streak/internal/models"

	"go.uber.org/zap"
)

// GMStatsEntry is one daily snapshot of a chain's global counters.
type GMStatsEntry struct {
	Timestamp     string `json:"timestamp"` // RFC3339
	Date          string `json:"date"`      // YYYY-MM-DD, UTC
	Chain         string `json:"chain"`
	TotalUsers    uint64 `json:"total_users"`
	TotalActions  uint64 `json:"total_actions"`
	TodaysActions uint64 `json:"todays_actions"`
}

type GMStatsData struct {
	Entries []GMStatsEntry `json:"entries"`
}

func (s *Store) LoadGMStats() (*GMStatsData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadGMStatsLocked()
}

func (s *Store) loadGMStatsLocked() (*GMStatsData, error) {
	var data GMStatsData
	if _, err := readJSON(s.path(GMStatsFileName), &data); err != nil {
		return nil, err
	}
	if data.Entries == nil {
		data.Entries = []GMStatsEntry{}
	}
	return &data, nil
}

// SaveGMStats records stats for chain on at's UTC day. A second save on the
// same day replaces the earlier one.
func (s *Store) SaveGMStats(chain string, stats models.GlobalStats, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadGMStatsLocked()
	if err != nil {
		logging.LogWarn("GM stats file unreadable, starting fresh", zap.Error(err))
		data = &GMStatsData{Entries: []GMStatsEntry{}}
	}

	entry := GMStatsEntry{
		Timestamp:     at.UTC().Format(time.RFC3339),
		Date:          at.UTC().Format("2006-01-02"),
		Chain:         chain,
		TotalUsers:    stats.TotalUsers,
		TotalActions:  stats.TotalActions,
		TodaysActions: stats.TodaysActions,
	}

	replaced := false
	for i := range data.Entries {
		if data.Entries[i].Chain == chain && data.Entries[i].Date == entry.Date {
			data.Entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		data.Entries = append(data.Entries, entry)
	}
	sort.SliceStable(data.Entries, func(i, j int) bool {
		return data.Entries[i].Date < data.Entries[j].Date
	})

	if err := writeJSONAtomic(s.path(GMStatsFileName), data); err != nil {
		return fmt.Errorf("failed to save gm stats: %w", err)
	}
	return nil
}

// RecentGMStats returns up to days entries for chain, oldest first.
func (s *Store) RecentGMStats(chain string, days int) ([]GMStatsEntry, error) {
	data, err := s.LoadGMStats()
	if err != nil {
		return nil, err
	}
	var out []GMStatsEntry
	for _, e := range data.Entries {
		if e.Chain == chain {
			out = append(out, e)
		}
	}
	if days > 0 && len(out) > days {
		out = out[len(out)-days:]
	}
	return out, nil
}
