package models

import "time"

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Date        time.Time `json:"date"`
	CreatedBy   int64     `json:"createdBy"`
	ImageURL    *string   `json:"image_url"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Page limits a listing. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}
