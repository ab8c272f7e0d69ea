package neynar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gm-streak/internal/infra/log"
	"gm-streak/internal/models"

	"go.uber.org/zap"
)

// ErrMalformedResponse means the body parsed but did not have the expected shape.
var ErrMalformedResponse = errors.New("neynar: malformed response")

// LookupByAddresses issues one bulk-by-address request.
// Every requested address appears in the result: a profile or nil when Neynar
// has no user for it. Keys are lowercased.
func (c *Client) LookupByAddresses(ctx context.Context, addresses []string) (map[string]*models.SocialProfile, error) {
	wanted := uniqueAddresses(addresses)
	if len(wanted) == 0 {
		return map[string]*models.SocialProfile{}, nil
	}

	endpoint := "/user/bulk-by-address?addresses=" + url.QueryEscape(strings.Join(wanted, ","))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup users by address: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// response keys are lowercase, but be lenient about checksummed echoes
	byLower := make(map[string]json.RawMessage, len(raw))
	for key, value := range raw {
		byLower[models.NormalizeAddress(key)] = value
	}

	result := make(map[string]*models.SocialProfile, len(wanted))
	for _, addr := range wanted {
		result[addr] = nil
		if value, ok := byLower[addr]; ok {
			if user, ok := firstUser(value); ok {
				result[addr] = user.ToProfile()
			}
		}
	}
	return result, nil
}

// LookupByFIDs issues one bulk request by Farcaster id.
func (c *Client) LookupByFIDs(ctx context.Context, fids []uint64) ([]*models.SocialProfile, error) {
	if len(fids) == 0 {
		return nil, nil
	}

	parts := make([]string, 0, len(fids))
	for _, fid := range fids {
		parts = append(parts, strconv.FormatUint(fid, 10))
	}

	body, err := c.get(ctx, "/user/bulk?fids="+url.QueryEscape(strings.Join(parts, ",")))
	if err != nil {
		return nil, fmt.Errorf("failed to lookup users by fid: %w", err)
	}

	var resp BulkUsersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	profiles := make([]*models.SocialProfile, 0, len(resp.Users))
	for _, u := range resp.Users {
		if u.FID == 0 {
			continue
		}
		profiles = append(profiles, u.ToProfile())
	}
	return profiles, nil
}

// ProfileByAddress returns the profile linked to address or nil.
func (c *Client) ProfileByAddress(ctx context.Context, address string) (*models.SocialProfile, error) {
	profiles, err := c.LookupByAddresses(ctx, []string{address})
	if err != nil {
		return nil, err
	}
	return profiles[models.NormalizeAddress(address)], nil
}

// ProfileByFID returns the profile for fid or nil.
func (c *Client) ProfileByFID(ctx context.Context, fid uint64) (*models.SocialProfile, error) {
	profiles, err := c.LookupByFIDs(ctx, []uint64{fid})
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return profiles[0], nil
}

// FetchProfiles never fails: on any error it logs and returns an empty map,
// which callers must read as "unknown", not as "no profile".
func (c *Client) FetchProfiles(ctx context.Context, addresses []string) map[string]*models.SocialProfile {
	wanted := uniqueAddresses(addresses)
	if len(wanted) == 0 {
		return map[string]*models.SocialProfile{}
	}
	if !c.HasAPIKey() {
		log.LogWarn("Neynar api key missing, skipping profile fetch", zap.Int("addresses", len(wanted)))
		return map[string]*models.SocialProfile{}
	}

	start := time.Now()
	profiles, err := c.LookupByAddresses(ctx, wanted)
	if err != nil {
		log.LogError("Failed to fetch Farcaster profiles", zap.Int("addresses", len(wanted)), zap.Error(err))
		return map[string]*models.SocialProfile{}
	}

	found := 0
	for _, p := range profiles {
		if p != nil {
			found++
		}
	}
	log.LogDebug("Farcaster profiles fetched",
		zap.Int("requested", len(wanted)),
		zap.Int("found", found),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	return profiles
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		norm := models.NormalizeAddress(addr)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}
