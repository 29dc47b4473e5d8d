package models

import "time"

// Product prices are stored in the smallest currency unit (paisa).
type Product struct {
	ID          string
	Name        string
	Category    string
	Brand       string
	Price       int64
	Description string
	ImageURL    *string
	Rating      float64
	ReviewCount int
	Stock       int
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
