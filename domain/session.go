package domain

import "time"

// Session describes an opaque login session. Only the id → user id mapping is
// persisted; the timestamps are derived from the TTL at creation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TTL returns the lifetime the session was issued with.
func (s *Session) TTL() time.Duration {
	if s == nil {
		return 0
	}
	return s.ExpiresAt.Sub(s.CreatedAt)
}
