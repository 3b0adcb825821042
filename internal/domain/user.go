package domain

import "time"

// User is a staff account that signs in to a terminal or the admin console.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	BranchID     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
