package api

import "github.com/starford/notas/internal/models"

// CredentialsRequest is the body of POST /accounts and POST /session.
type CredentialsRequest struct {
	Username string `json:"username" example:"alice" validate:"required"`
	Password string `json:"password" example:"Passw0rd" validate:"required"`
}

// AccountResponse is returned after a successful registration.
type AccountResponse struct {
	Username string `json:"username" example:"alice" validate:"required"`
}

// NoteRequest is the body of POST /notes and PUT /notes/{id}.
type NoteRequest struct {
	Title   string `json:"title" example:"Groceries" validate:"required"`
	Content string `json:"content" example:"Milk, eggs" validate:"required"`
}

// Session is the signed-in user (aliased from the domain layer).
type Session = models.Session

// Note is a single note (aliased from the domain layer).
type Note = models.Note

// Stats are the derived note counters (aliased from the domain layer).
type Stats = models.Stats

// NoteListResponse is the list view: matching notes plus counters over all notes.
type NoteListResponse struct {
	Notes []Note `json:"notes" validate:"required"`
	Stats Stats  `json:"stats" validate:"required"`
}
