package models

// Shared data model for the GM streak tracker
// Contract-sourced records are read-only, everything else is rebuilt on each poll

import "strings"

// ZeroAddress is the sentinel the contract pads getTopUsers results with.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// UserStreakRecord mirrors getUserData(address) of the GM contract.
type UserStreakRecord struct {
	Address             string `json:"address"`
	CurrentStreak       uint64 `json:"currentStreak"`
	LongestStreak       uint64 `json:"longestStreak"`
	TotalActions        uint64 `json:"totalActions"`
	LastActionTimestamp int64  `json:"lastActionTimestamp"` // unix seconds, 0 = never acted
	EligibleNow         bool   `json:"eligibleNow"`         // contract's own canGMToday flag
	IsRegistered        bool   `json:"isRegistered"`
}

// GlobalStats mirrors getGlobalStats() of the GM contract.
type GlobalStats struct {
	TotalUsers    uint64 `json:"totalUsers"`
	TotalActions  uint64 `json:"totalActions"`
	TodaysActions uint64 `json:"todaysActions"`
	CurrentDay    uint64 `json:"currentDay"`
}

// RawEntry is one row of getTopUsers(limit): address, current streak, lifetime count.
type RawEntry struct {
	Address      string `json:"address"`
	Streak       uint64 `json:"streak"`
	TotalActions uint64 `json:"totalActions"`
}

// LeaderboardEntry is a ranked row, optionally enriched with a social profile.
type LeaderboardEntry struct {
	Address      string         `json:"address"`
	Streak       uint64         `json:"streak"`
	TotalActions uint64         `json:"totalActions"`
	Rank         int            `json:"rank"`
	Profile      *SocialProfile `json:"profile,omitempty"`
}

// DisplayName picks the best label for an entry: display name, username, short address.
func (e LeaderboardEntry) DisplayName() string {
	if e.Profile != nil {
		if e.Profile.DisplayName != "" {
			return e.Profile.DisplayName
		}
		if e.Profile.Username != "" {
			return e.Profile.Username
		}
	}
	return ShortAddress(e.Address)
}

// Identity is the locally known connected user: wallet address plus social profile if any.
type Identity struct {
	Address string
	Profile *SocialProfile
}

// NormalizeAddress lowercases and trims an address for use as a map/cache key.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsSentinelAddress reports empty, "0x" and all-zero addresses.
func IsSentinelAddress(address string) bool {
	a := NormalizeAddress(address)
	if a == "" || a == "0x" {
		return true
	}
	return strings.TrimLeft(strings.TrimPrefix(a, "0x"), "0") == ""
}

// ShortAddress 0x67FafE153aeB3c2caae7a138C1409aB53f680C75 -> 0x67Fa...0C75
func ShortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
