package models

// Status is the client's belief about who is logged in.
type Status int

const (
	// StatusUnresolved is the state before bootstrap has finished.
	StatusUnresolved Status = iota
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Session is derived from the stored credential and the last server probe; it is never persisted.
type Session struct {
	Status Status
	User   *User

	// Partial is set when User was built from credential claims because the
	// server could not be reached during bootstrap.
	Partial bool
}

// IsAuthenticated returns true if the session has a user and the authenticated status.
func (s Session) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// UserID returns the logged in user's id, or empty when anonymous.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}
