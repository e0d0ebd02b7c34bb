package models

import "time"

// DefaultTokenType is recorded when the OAuth provider omits token_type.
const DefaultTokenType = "Bearer"

// TokenRecord represents a persisted OAuth token set. ExpiresAt is in
// milliseconds since epoch, matching what the token endpoint reports.
type TokenRecord struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	APIDomain    string `json:"api_domain"`
	TokenType    string `json:"token_type"`
	CreatedAt    string `json:"created_at"`
}

// HasTokens returns true if both the access and refresh tokens are present.
func (t *TokenRecord) HasTokens() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// ExpiresAtTime returns the expiry as a time.Time.
func (t *TokenRecord) ExpiresAtTime() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}

// IsExpiredAt reports whether the access token is expired at the given
// instant, treating it as expired once within buffer of the recorded expiry.
// A record without an expiry is always considered expired.
func (t *TokenRecord) IsExpiredAt(now time.Time, buffer time.Duration) bool {
	if t.ExpiresAt == 0 {
		return true
	}
	return now.UnixMilli() >= t.ExpiresAt-buffer.Milliseconds()
}

// Clone returns a copy of the record.
func (t *TokenRecord) Clone() *TokenRecord {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
