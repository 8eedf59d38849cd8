// Package models defines the domain types for notas.
package models

import "time"

// User is a registered account. Passwords are stored as typed.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session identifies the signed-in user whose notes are visible. Only the
// username is persisted; StartedAt is set on the Login result alone.
type Session struct {
	Username  string    `json:"username"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

// Active reports whether the session names a user.
func (s Session) Active() bool {
	return s.Username != ""
}

// Note is a single entry in a user's note list.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
}

// Stats are the derived counters shown above the note list.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// CountNotes derives Stats from notes.
func CountNotes(notes []Note) Stats {
	st := Stats{Total: len(notes)}
	for _, n := range notes {
		if n.Completed {
			st.Completed++
		}
	}
	st.Pending = st.Total - st.Completed
	return st
}
