package domain

// RateLimitEntry is the persisted state of one fixed window.
// ResetAt is a unix timestamp in seconds.
type RateLimitEntry struct {
	Count   int64 `json:"count"`
	ResetAt int64 `json:"resetAt"`
}

// Advance applies one request at now to the entry and returns the result.
// A nil entry or an elapsed window starts a fresh window.
func (e *RateLimitEntry) Advance(now, windowSeconds int64) RateLimitEntry {
	if e == nil || now >= e.ResetAt {
		return RateLimitEntry{Count: 1, ResetAt: now + windowSeconds}
	}
	return RateLimitEntry{Count: e.Count + 1, ResetAt: e.ResetAt}
}
