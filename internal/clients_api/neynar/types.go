package neynar

import (
	"encoding/json"

	"gm-streak/internal/models"
)

// User is the subset of a Neynar user object this module reads.
type User struct {
	FID            uint64   `json:"fid"`
	Username       string   `json:"username"`
	DisplayName    string   `json:"display_name"`
	PfpURL         string   `json:"pfp_url"`
	FollowerCount  int64    `json:"follower_count"`
	FollowingCount int64    `json:"following_count"`
	Verifications  []string `json:"verifications"`
	Profile        struct {
		Bio struct {
			Text string `json:"text"`
		} `json:"bio"`
	} `json:"profile"`
}

// BulkUsersResponse is the body of GET /user/bulk?fids=.
type BulkUsersResponse struct {
	Users []User `json:"users"`
}

// ToProfile normalizes a Neynar user into the shared profile shape.
func (u User) ToProfile() *models.SocialProfile {
	verified := make([]string, 0, len(u.Verifications))
	for _, addr := range u.Verifications {
		verified = append(verified, models.NormalizeAddress(addr))
	}
	return &models.SocialProfile{
		FID:               u.FID,
		Username:          u.Username,
		DisplayName:       u.DisplayName,
		PfpURL:            u.PfpURL,
		Bio:               u.Profile.Bio.Text,
		FollowerCount:     u.FollowerCount,
		FollowingCount:    u.FollowingCount,
		VerifiedAddresses: verified,
	}
}

// firstUser decodes one per-address value. Anything other than a non-empty
// array of user objects counts as "no profile".
func firstUser(raw json.RawMessage) (*User, bool) {
	var users []User
	if err := json.Unmarshal(raw, &users); err != nil || len(users) == 0 {
		return nil, false
	}
	if users[0].FID == 0 {
		return nil, false
	}
	return &users[0], true
}
