package models

import "time"

// User is keyed by the Telegram user id. Fantics is never negative.
type User struct {
	UserID    int64     `json:"user_id"`
	Username  *string   `json:"username,omitempty"`
	Fantics   int64     `json:"fantics"`
	CreatedAt time.Time `json:"created_at"`
}
