package models

import "strings"

// User is the server's view of an account. The client only ever holds read-only copies.
type User struct {
	ID          string `json:"_id" yaml:"id"`
	LoginName   string `json:"login_name,omitempty" yaml:"login_name,omitempty"`
	FirstName   string `json:"first_name" yaml:"first_name"`
	LastName    string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Occupation  string `json:"occupation,omitempty" yaml:"occupation,omitempty"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserSummary is the author record embedded in a comment.
type UserSummary struct {
	ID        string `json:"_id" yaml:"id"`
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
}

// FullName joins first and last name, skipping empty parts.
func (u UserSummary) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
