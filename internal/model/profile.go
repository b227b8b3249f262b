package model

import "time"

type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileUpdate carries the fields a user may change on their own profile.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

// Account holds login credentials. It is never serialized.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Username     string // metadata captured at sign-up
	CreatedAt    time.Time
}
