package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notas/internal/accounts"
	"github.com/starford/notas/internal/checksum"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/notes"
)

// Handler holds API route handlers.
type Handler struct {
	dir    *accounts.Directory
	repo   *notes.Repository
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(dir *accounts.Directory, repo *notes.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dir: dir, repo: repo, logger: logger}
}

func etag(n Note) string {
	return `"` + checksum.Note(n) + `"`
}

// Register handles POST /api/accounts.
//
//	@Summary		Register a new account
//	@Tags			accounts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CredentialsRequest	true	"Credentials"
//	@Success		201		{object}	AccountResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/accounts [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.dir.Register(r.Context(), req.Username, req.Password); err != nil {
		h.writeError(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, AccountResponse{Username: req.Username})
}

// Login handles POST /api/session.
//
//	@Summary		Sign in and make the account the current session
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CredentialsRequest	true	"Credentials"
//	@Success		200		{object}	Session
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.dir.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// CurrentSession handles GET /api/session.
//
//	@Summary		Get the current session
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	Session
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.dir.Resolve(r.Context())
	if err != nil {
		h.writeError(w, "current session", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Logout handles DELETE /api/session.
//
//	@Summary		Sign out
//	@Tags			session
//	@Success		204	"Signed out"
//	@Security		BearerAuth
//	@Router			/session [delete]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.dir.Logout(r.Context()); err != nil {
		h.writeError(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List or search the session user's notes
//	@Tags			notes
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive title filter"
//	@Success		200	{object}	NoteListResponse
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		h.writeError(w, "list notes", err)
		return
	}
	all, err := h.repo.List(r.Context(), s)
	if err != nil {
		h.writeError(w, "list notes", err)
		return
	}
	// Counters always cover every note, not just the filtered view.
	resp := NoteListResponse{Notes: all, Stats: models.CountNotes(all)}
	if q := r.URL.Query().Get("q"); q != "" {
		resp.Notes, err = h.repo.Search(r.Context(), s, q)
		if err != nil {
			h.writeError(w, "search notes", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// NoteStats handles GET /api/notes/stats.
//
//	@Summary		Get note counters
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	Stats
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/stats [get]
func (h *Handler) NoteStats(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		h.writeError(w, "note stats", err)
		return
	}
	st, err := h.repo.Stats(r.Context(), s)
	if err != nil {
		h.writeError(w, "note stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		h.writeError(w, "get note", err)
		return
	}
	n, err := h.repo.Get(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", etag(n))
	writeJSON(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to create"
//	@Success		201		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		h.writeError(w, "create note", err)
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.repo.Create(r.Context(), s, req.Title, req.Content)
	if err != nil {
		h.writeError(w, "create note", err)
		return
	}
	w.Header().Set("ETag", etag(n))
	writeJSON(w, http.StatusCreated, n)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Edit a note with optional optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Note id"
//	@Param			If-Match	header		string		false	"ETag from a previous read"
//	@Param			body		body		NoteRequest	true	"New title and content"
//	@Success		200			{object}	Note
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		h.writeError(w, "update note", err)
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	// Strip surrounding quotes (standard ETag format).
	tag := strings.Trim(r.Header.Get("If-Match"), `"`)

	n, err := h.repo.UpdateIfMatch(r.Context(), s, chi.URLParam(r, "id"), req.Title, req.Content, tag)
	if err != nil {
		h.writeError(w, "update note", err)
		return
	}
	w.Header().Set("ETag", etag(n))
	writeJSON(w, http.StatusOK, n)
}

// ToggleNote handles POST /api/notes/{id}/toggle.
//
//	@Summary		Flip the completed flag of a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/toggle [post]
func (h *Handler) ToggleNote(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		h.writeError(w, "toggle note", err)
		return
	}
	n, err := h.repo.ToggleComplete(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "toggle note", err)
		return
	}
	w.Header().Set("ETag", etag(n))
	writeJSON(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	s, err := session(r)
	if err != nil {
		h.writeError(w, "delete note", err)
		return
	}
	if err := h.repo.Delete(r.Context(), s, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
