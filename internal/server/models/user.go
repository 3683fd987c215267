// Package models defines the server-side data models persisted by eventhub.
package models

import "time"

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Gender       *string   `json:"gender"`
	BirthDate    *Date     `json:"birthDate"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitized returns a copy of u without the password hash.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}
