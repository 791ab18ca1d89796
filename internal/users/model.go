package users

import "time"

// User is an authenticated operator of the QA system.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	FullName       *string   `json:"full_name,omitempty"`
	Role           string    `json:"role"`
	CompanyID      *int64    `json:"company_id,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
