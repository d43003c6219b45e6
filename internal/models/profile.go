package models

import "time"

// Profile is a registered user of the reporting application.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Village   string    `json:"village"`
	CreatedAt time.Time `json:"created_at"`
}
