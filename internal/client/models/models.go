// Package models holds the client-side view of API resources.
package models

import "time"

type User struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	Gender    *string `json:"gender"`
	BirthDate *string `json:"birthDate"`
}

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date"`
	CreatedBy   int64     `json:"createdBy"`
	ImageURL    *string   `json:"image_url"`
}

// Tokens is the credential pair held by a logged-in client.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}
