package models

import "time"

// Event represents an audit entry such as a registration or password reset request.
type Event struct {
	ID        string    `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`   // e.g., "user.register", "user.forgot_password"
	Level     string    `json:"level" db:"level"` // e.g., "info", "warn"
	Message   string    `json:"message" db:"message"`
	UserID    *string   `json:"user_id,omitempty" db:"user_id"` // Nullable for system-wide events
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
