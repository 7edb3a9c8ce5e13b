package domain

import (
	"strings"
	"time"
)

// User represents a reader account created through an OAuth provider.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Bio        *string   `json:"bio"`
	AvatarURL  *string   `json:"avatar_url"`
	Provider   Provider  `json:"provider"`
	ProviderID string    `json:"provider_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserUpdate carries the optional profile fields a user may change.
// Nil fields are left untouched.
type UserUpdate struct {
	Username  *string
	Name      *string
	Bio       *string
	AvatarURL *string
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Name == nil && u.Bio == nil && u.AvatarURL == nil
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID string
	User   *User
}

var reservedUsernames = map[string]struct{}{
	"admin": {}, "api": {}, "auth": {}, "books": {}, "callback": {},
	"health": {}, "login": {}, "logout": {}, "me": {}, "new": {},
	"root": {}, "search": {}, "session": {}, "settings": {}, "signup": {},
	"static": {}, "system": {}, "tags": {}, "user": {}, "users": {},
}

// IsReservedUsername reports whether username collides with a route or system name.
func IsReservedUsername(username string) bool {
	_, ok := reservedUsernames[strings.ToLower(username)]
	return ok
}
