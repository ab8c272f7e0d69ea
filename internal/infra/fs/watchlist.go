package fs

import (
	"fmt"
	"strconv"

	logging "gm-streak/internal/infra/log"
	"gm-streak/internal/models"

	"go.uber.org/zap"
)

// WatchEntry is one address a chat wants GM reminders for.
type WatchEntry struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
	// NotifiedFor is the lastActionTimestamp a reminder was already sent for.
	NotifiedFor int64 `json:"notified_for"`
}

// WatchlistData maps chat id to its watched addresses.
type WatchlistData struct {
	Chats map[string][]WatchEntry `json:"chats"`
}

func (s *Store) loadWatchlistLocked() (*WatchlistData, error) {
	var data WatchlistData
	if _, err := readJSON(s.path(WatchlistFileName), &data); err != nil {
		return nil, err
	}
	if data.Chats == nil {
		data.Chats = map[string][]WatchEntry{}
	}
	return &data, nil
}

func (s *Store) LoadWatchlist() (*WatchlistData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadWatchlistLocked()
}

// AddWatch subscribes chatID to address on chain. Returns false if already watched.
func (s *Store) AddWatch(chatID int64, address, chain string) (bool, error) {
	address = models.NormalizeAddress(address)
	if address == "" {
		return false, fmt.Errorf("address cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadWatchlistLocked()
	if err != nil {
		return false, err
	}

	key := strconv.FormatInt(chatID, 10)
	for _, e := range data.Chats[key] {
		if e.Address == address && e.Chain == chain {
			return false, nil
		}
	}
	data.Chats[key] = append(data.Chats[key], WatchEntry{Address: address, Chain: chain})

	if err := writeJSONAtomic(s.path(WatchlistFileName), data); err != nil {
		return false, fmt.Errorf("failed to save watchlist: %w", err)
	}
	logging.LogInfo("Added address to watchlist", zap.Int64("chat_id", chatID), zap.String("address", address), zap.String("chain", chain))
	return true, nil
}

// RemoveWatch drops address from chatID on every chain. Returns false if it was not watched.
func (s *Store) RemoveWatch(chatID int64, address string) (bool, error) {
	address = models.NormalizeAddress(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadWatchlistLocked()
	if err != nil {
		return false, err
	}

	key := strconv.FormatInt(chatID, 10)
	kept := data.Chats[key][:0]
	removed := false
	for _, e := range data.Chats[key] {
		if e.Address == address {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return false, nil
	}
	if len(kept) == 0 {
		delete(data.Chats, key)
	} else {
		data.Chats[key] = kept
	}

	if err := writeJSONAtomic(s.path(WatchlistFileName), data); err != nil {
		return false, fmt.Errorf("failed to save watchlist: %w", err)
	}
	logging.LogInfo("Removed address from watchlist", zap.Int64("chat_id", chatID), zap.String("address", address))
	return true, nil
}

// MarkNotified records that a reminder went out for the window opened by lastActionTimestamp.
func (s *Store) MarkNotified(chatID int64, address, chain string, lastActionTimestamp int64) error {
	address = models.NormalizeAddress(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadWatchlistLocked()
	if err != nil {
		return err
	}

	key := strconv.FormatInt(chatID, 10)
	entries := data.Chats[key]
	for i := range entries {
		if entries[i].Address == address && entries[i].Chain == chain {
			entries[i].NotifiedFor = lastActionTimestamp
			return writeJSONAtomic(s.path(WatchlistFileName), data)
		}
	}
	return nil
}
