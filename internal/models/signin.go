package models

import "time"

// Signin is one persisted session: an owner, its refresh token, the client
// fingerprint captured at issuance, and an expiration. A nil ExpirationTime
// means the session never expires on its own.
type Signin struct {
	ID             string         `json:"id"`
	OwnerType      string         `json:"owner_type"`
	OwnerID        string         `json:"owner_id"`
	Token          string         `json:"token"`
	IP             string         `json:"ip"`
	UserAgent      string         `json:"user_agent"`
	Referer        string         `json:"referer"`
	ExpirationTime *time.Time     `json:"expiration_time"`
	CustomData     map[string]any `json:"custom_data"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Expireable reports whether the signin can expire on its own.
func (s *Signin) Expireable() bool {
	return s.ExpirationTime != nil
}

// Active reports whether the signin is still valid at the given instant.
func (s *Signin) Active(now time.Time) bool {
	return s.ExpirationTime == nil || s.ExpirationTime.After(now)
}

// SigninUpdate carries the fields rewritten on rotation, renewal and signout.
// ExpirationTime nil keeps the session non-expiring.
type SigninUpdate struct {
	Token          string
	IP             string
	UserAgent      string
	ExpirationTime *time.Time
	UpdatedAt      time.Time
}

// Fingerprint identifies the client side of a request. Referer is recorded
// for bookkeeping only and is never restrictable.
type Fingerprint struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	Referer   string `json:"referer"`
}
