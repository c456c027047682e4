package domain

import "time"

// Program is a fundraising campaign. Its Code namespaces invoice numbers.
type Program struct {
	Slug      string     `json:"slug"`
	Code      string     `json:"code"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
