package domain

import "time"

// User is mutated over HTTP only; orders and products go through the queues.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UserCreate struct {
	Username    string  `json:"username" validate:"required,max=50"`
	Email       string  `json:"email" validate:"required,email,max=100"`
	Description *string `json:"description"`
}

// UserUpdate is a full replacement of the mutable fields, so username and
// email stay required.
type UserUpdate struct {
	Username    string  `json:"username" validate:"required,max=50"`
	Email       string  `json:"email" validate:"required,email,max=100"`
	Description *string `json:"description"`
}

// UserFilter narrows List results; string fields are case-insensitive
// substring matches.
type UserFilter struct {
	Page        Page
	Username    string
	Email       string
	Description string
}
