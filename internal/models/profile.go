package models

// SocialProfile is the canonical Farcaster profile shape used across the service.
// A nil *SocialProfile stored in a profile cache means "looked up, no profile exists".
type SocialProfile struct {
	FID               uint64   `json:"fid"`
	Username          string   `json:"username,omitempty"`
	DisplayName       string   `json:"displayName,omitempty"`
	PfpURL            string   `json:"pfpUrl,omitempty"`
	Bio               string   `json:"bio,omitempty"`
	FollowerCount     int64    `json:"followerCount,omitempty"`
	FollowingCount    int64    `json:"followingCount,omitempty"`
	VerifiedAddresses []string `json:"verifiedAddresses,omitempty"`
}
