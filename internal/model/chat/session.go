package chat

import "time"

// DefaultSessionTitle is assigned to every session created through the API.
const DefaultSessionTitle = "New Session"

// Session is a titled conversation thread owned by one user.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the projection returned by the session listing.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary projects the session for listings.
func (s Session) Summary() Summary {
	return Summary{ID: s.ID, Title: s.Title, UpdatedAt: s.UpdatedAt}
}
