package client

import "time"

// Session describes the logged-in user.
type Session struct {
	UserID    int64
	Email     string
	FullName  string
	ExpiresAt time.Time
}

// Registration is the self-registration form.
type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  []byte
}

// NewAccident is the input of CreateAccident. A zero OccurredAt lets the
// server use the current time.
type NewAccident struct {
	OccurredAt  time.Time
	Location    string
	Description string
}

// Accident is an accident record as returned by the server.
type Accident struct {
	ID           int64
	CaseNumber   string
	OccurredAt   time.Time
	Location     string
	Description  string
	RegisteredBy int64
	CreatedAt    time.Time
}
