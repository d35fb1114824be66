package domain

import "time"

// Note is the example owned resource exposed by the CRUD endpoints.
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
