package user

import "time"

type User struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateInput struct {
	Name       string
	Email      string
	Password   string
	Role       string
	Department string
}

type UpdateInput struct {
	Name       string
	Role       string
	Department string
	// Password is optional; empty leaves the stored hash untouched.
	Password string
}
