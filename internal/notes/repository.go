// Package notes implements the per-user note repository.
package notes

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/checksum"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/storage"
)

// KeyPrefix prefixes the store key of every user's note list.
const KeyPrefix = "notes_"

// Note event kinds passed to EventCallback.
const (
	EventCreated   = "created"
	EventUpdated   = "updated"
	EventCompleted = "completed"
	EventReopened  = "reopened"
	EventDeleted   = "deleted"
)

// Key returns the store key holding username's notes.
func Key(username string) string {
	return KeyPrefix + username
}

// EventCallback is called after a note mutation has been persisted.
type EventCallback func(kind, username, id string)

// IDGenerator returns a fresh note id.
type IDGenerator func() (string, error)

// NewID returns a UUIDv7 string. Version 7 ids sort by creation time.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Repository stores each user's notes as one JSON array under Key(username).
type Repository struct {
	store  storage.Store
	newID  IDGenerator
	logger *slog.Logger
	events EventCallback

	mu sync.Mutex
}

// Option configures a Repository.
type Option func(*Repository)

// WithIDGenerator replaces NewID.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Repository) { r.newID = gen }
}

// WithLogger sets the repository logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithEvents registers a callback for note mutations.
func WithEvents(cb EventCallback) Option {
	return func(r *Repository) { r.events = cb }
}

// New creates a Repository backed by store.
func New(store storage.Store, opts ...Option) *Repository {
	r := &Repository{
		store:  store,
		newID:  NewID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ValidateFields checks that title and content are non-blank, title first.
func ValidateFields(title, content string) error {
	if err := validation.Validate(strings.TrimSpace(title), validation.Required); err != nil {
		return apperr.ErrEmptyTitle
	}
	if err := validation.Validate(strings.TrimSpace(content), validation.Required); err != nil {
		return apperr.ErrEmptyContent
	}
	return nil
}

// List returns the session user's notes in insertion order.
func (r *Repository) List(ctx context.Context, s models.Session) ([]models.Note, error) {
	if !s.Active() {
		return nil, apperr.ErrNoActiveSession
	}
	return r.load(ctx, s.Username)
}

// Search returns notes whose title contains query, ignoring case.
// An empty query matches every note.
func (r *Repository) Search(ctx context.Context, s models.Session, query string) ([]models.Note, error) {
	all, err := r.List(ctx, s)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}
	q := strings.ToLower(query)
	out := make([]models.Note, 0, len(all))
	for _, n := range all {
		if strings.Contains(strings.ToLower(n.Title), q) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Get returns a single note.
func (r *Repository) Get(ctx context.Context, s models.Session, id string) (models.Note, error) {
	all, err := r.List(ctx, s)
	if err != nil {
		return models.Note{}, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return models.Note{}, apperr.ErrNoteNotFound
	}
	return all[i], nil
}

// Stats returns the derived total, completed and pending counts.
func (r *Repository) Stats(ctx context.Context, s models.Session) (models.Stats, error) {
	all, err := r.List(ctx, s)
	if err != nil {
		return models.Stats{}, err
	}
	return models.CountNotes(all), nil
}

// Create appends a new, incomplete note.
func (r *Repository) Create(ctx context.Context, s models.Session, title, content string) (models.Note, error) {
	if !s.Active() {
		return models.Note{}, apperr.ErrNoActiveSession
	}
	if err := ValidateFields(title, content); err != nil {
		return models.Note{}, err
	}
	id, err := r.newID()
	if err != nil {
		return models.Note{}, err
	}
	note := models.Note{ID: id, Title: title, Content: content}

	err = r.mutate(ctx, s.Username, func(all []models.Note) ([]models.Note, error) {
		return append(all, note), nil
	})
	if err != nil {
		return models.Note{}, err
	}
	r.emit(EventCreated, s.Username, id)
	return note, nil
}

// Update replaces the title and content of an existing note in place.
func (r *Repository) Update(ctx context.Context, s models.Session, id, title, content string) (models.Note, error) {
	return r.UpdateIfMatch(ctx, s, id, title, content, "")
}

// UpdateIfMatch is Update guarded by the note's checksum.Note tag. An empty
// tag skips the check; a stale one fails with ErrChecksumMismatch.
func (r *Repository) UpdateIfMatch(ctx context.Context, s models.Session, id, title, content, tag string) (models.Note, error) {
	if !s.Active() {
		return models.Note{}, apperr.ErrNoActiveSession
	}
	if err := ValidateFields(title, content); err != nil {
		return models.Note{}, err
	}
	var updated models.Note
	err := r.mutate(ctx, s.Username, func(all []models.Note) ([]models.Note, error) {
		i := indexOf(all, id)
		if i < 0 {
			return nil, apperr.ErrNoteNotFound
		}
		if tag != "" && checksum.Note(all[i]) != tag {
			return nil, apperr.ErrChecksumMismatch
		}
		all[i].Title = title
		all[i].Content = content
		updated = all[i]
		return all, nil
	})
	if err != nil {
		return models.Note{}, err
	}
	r.emit(EventUpdated, s.Username, id)
	return updated, nil
}

// ToggleComplete flips the completed flag of a note.
func (r *Repository) ToggleComplete(ctx context.Context, s models.Session, id string) (models.Note, error) {
	if !s.Active() {
		return models.Note{}, apperr.ErrNoActiveSession
	}
	var toggled models.Note
	err := r.mutate(ctx, s.Username, func(all []models.Note) ([]models.Note, error) {
		i := indexOf(all, id)
		if i < 0 {
			return nil, apperr.ErrNoteNotFound
		}
		all[i].Completed = !all[i].Completed
		toggled = all[i]
		return all, nil
	})
	if err != nil {
		return models.Note{}, err
	}
	kind := EventReopened
	if toggled.Completed {
		kind = EventCompleted
	}
	r.emit(kind, s.Username, id)
	return toggled, nil
}

// Delete removes a note. Callers confirm with the user beforehand.
func (r *Repository) Delete(ctx context.Context, s models.Session, id string) error {
	if !s.Active() {
		return apperr.ErrNoActiveSession
	}
	err := r.mutate(ctx, s.Username, func(all []models.Note) ([]models.Note, error) {
		i := indexOf(all, id)
		if i < 0 {
			return nil, apperr.ErrNoteNotFound
		}
		return append(all[:i], all[i+1:]...), nil
	})
	if err != nil {
		return err
	}
	r.emit(EventDeleted, s.Username, id)
	return nil
}

// mutate runs a read-modify-write of username's list under the repository lock.
// When fn fails nothing is written.
func (r *Repository) mutate(ctx context.Context, username string, fn func([]models.Note) ([]models.Note, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.load(ctx, username)
	if err != nil {
		return err
	}
	next, err := fn(all)
	if err != nil {
		return err
	}
	return r.save(ctx, username, next)
}

func (r *Repository) load(ctx context.Context, username string) ([]models.Note, error) {
	raw, ok, err := r.store.Get(ctx, Key(username))
	if err != nil {
		return nil, apperr.Store("get notes", err)
	}
	notes := []models.Note{}
	if !ok || raw == "" {
		return notes, nil
	}
	if err := json.Unmarshal([]byte(raw), &notes); err != nil {
		return nil, apperr.Store("decode notes", err)
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

func (r *Repository) save(ctx context.Context, username string, notes []models.Note) error {
	data, err := json.Marshal(notes)
	if err != nil {
		return apperr.Store("encode notes", err)
	}
	if err := r.store.Set(ctx, Key(username), string(data)); err != nil {
		r.logger.Error("persist notes failed",
			slog.String("username", username),
			slog.String("error", err.Error()))
		return apperr.Store("set notes", err)
	}
	return nil
}

func (r *Repository) emit(kind, username, id string) {
	r.logger.Debug("note changed",
		slog.String("kind", kind),
		slog.String("username", username),
		slog.String("id", id))
	if r.events != nil {
		r.events(kind, username, id)
	}
}

func indexOf(notes []models.Note, id string) int {
	for i, n := range notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
