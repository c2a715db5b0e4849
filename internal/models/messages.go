package models

// SessionUpdateRequest is the inbound payload adopting a new session.
type SessionUpdateRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token,omitempty"`
	UserID       string `json:"user_id" validate:"required"`
	AgencyID     string `json:"agency_id,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
}

// SessionUpdateResponse reports the outcome of a SessionUpdate event.
type SessionUpdateResponse struct {
	OK        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
	Unchanged bool   `json:"unchanged,omitempty"`
}

// PingResponse reports the authoritative session state from storage.
// UserID is omitted entirely when no session is active.
type PingResponse struct {
	OK     bool   `json:"ok"`
	Active bool   `json:"active"`
	UserID string `json:"userId,omitempty"`
}

// SubmitResponse reports the outcome of a CandidateSubmitted event.
// Exactly one of Sent/Queued/Skipped is set when OK is true.
type SubmitResponse struct {
	OK      bool           `json:"ok"`
	Sent    bool           `json:"sent,omitempty"`
	Queued  bool           `json:"queued,omitempty"`
	Skipped bool           `json:"skipped,omitempty"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"` // Server-enriched fields, forwarded verbatim
}
