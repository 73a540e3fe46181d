package models

import "time"

// User is an operator account. Email is stored normalized and is unique.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Active       bool
	RoleID       *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name for greetings.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
