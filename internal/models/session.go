package models

import "time"

// Session is the authentication credential set authorizing submissions to
// the remote candidate service. Exactly one session is active at a time;
// the durable store is the source of truth and the in-memory copy held by
// the coordinator is a disposable cache of it.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	UserID       string `json:"user_id"`
	AgencyID     string `json:"agency_id,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"` // Unix seconds; 0 = no expiry
}

// IsValid reports whether the session can authorize a submission right now.
func (s *Session) IsValid() bool {
	if s == nil || s.AccessToken == "" || s.UserID == "" {
		return false
	}
	return !s.IsExpired()
}

// IsExpired reports whether the session has an expiry in the past.
// A zero ExpiresAt means the session never expires.
func (s *Session) IsExpired() bool {
	if s == nil || s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() >= s.ExpiresAt
}

// Same reports whether two sessions carry the same credentials
// (token + user + agency). Used to short-circuit redundant re-adoption.
func (s *Session) Same(other *Session) bool {
	if s == nil || other == nil {
		return false
	}
	return s.AccessToken == other.AccessToken &&
		s.UserID == other.UserID &&
		s.AgencyID == other.AgencyID
}
