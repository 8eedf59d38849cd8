// Package accounts manages registered users and the device's current session.
package accounts

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"sync"
	"time"
	"unicode/utf16"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/storage"
)

// Store keys owned by the directory.
const (
	UsersKey   = "users"
	SessionKey = "currentUser"
)

// Session event kinds passed to EventCallback.
const (
	EventRegistered = "registered"
	EventLogin      = "login"
	EventLogout     = "logout"
)

// EventCallback is called after a successful account mutation.
type EventCallback func(kind, username string)

// minPasswordLength counts UTF-16 code units, so a character outside the
// Basic Multilingual Plane counts twice.
const minPasswordLength = 8

var passwordRules = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile(`^[^\n\r\x{2028}\x{2029}]+$`)),
	validation.By(func(value any) error {
		if len(utf16.Encode([]rune(value.(string)))) < minPasswordLength {
			return validation.NewError("validation_password_length", "too short")
		}
		return nil
	}),
	validation.Match(regexp.MustCompile(`[a-z]`)),
	validation.Match(regexp.MustCompile(`[A-Z]`)),
	validation.Match(regexp.MustCompile(`[0-9]`)),
}

// ValidatePassword checks the password policy: at least 8 UTF-16 code units
// on one line with a lowercase letter, an uppercase letter and a digit.
func ValidatePassword(password string) error {
	if err := validation.Validate(password, passwordRules...); err != nil {
		return apperr.ErrInvalidPassword
	}
	return nil
}

// RequireFields rejects an empty username or password.
func RequireFields(username, password string) error {
	if err := validation.Validate(username, validation.Required); err != nil {
		return apperr.ErrMissingFields
	}
	if err := validation.Validate(password, validation.Required); err != nil {
		return apperr.ErrMissingFields
	}
	return nil
}

// Directory owns the global user list and the current session pointer.
type Directory struct {
	store  storage.Store
	logger *slog.Logger
	events EventCallback
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the directory logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) { d.logger = l }
}

// WithEvents registers a callback for account events.
func WithEvents(cb EventCallback) Option {
	return func(d *Directory) { d.events = cb }
}

// WithClock overrides time.Now, used for Session.StartedAt.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// New creates a Directory backed by store.
func New(store storage.Store, opts ...Option) *Directory {
	d := &Directory{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a new user after checking the password policy and that the
// username is free. The whole user list is rewritten.
func (d *Directory) Register(ctx context.Context, username, password string) error {
	if err := RequireFields(username, password); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	users, _, err := d.loadUsers(ctx)
	if err != nil {
		return err
	}
	if _, ok := findUser(users, username); ok {
		return apperr.ErrUsernameTaken
	}

	users = append(users, models.User{Username: username, Password: password})
	if err := d.saveUsers(ctx, users); err != nil {
		return err
	}

	d.logger.Info("account registered", slog.String("username", username))
	d.emit(EventRegistered, username)
	return nil
}

// Login checks the credentials and makes username the current session.
func (d *Directory) Login(ctx context.Context, username, password string) (models.Session, error) {
	if err := RequireFields(username, password); err != nil {
		return models.Session{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	users, found, err := d.loadUsers(ctx)
	if err != nil {
		return models.Session{}, err
	}
	if !found {
		return models.Session{}, apperr.ErrAccountNotFound
	}
	u, ok := findUser(users, username)
	if !ok {
		return models.Session{}, apperr.ErrUserNotFound
	}
	if u.Password != password {
		d.logger.Warn("login rejected", slog.String("username", username))
		return models.Session{}, apperr.ErrWrongPassword
	}

	if err := d.store.Set(ctx, SessionKey, username); err != nil {
		return models.Session{}, apperr.Store("set session", err)
	}

	d.logger.Info("session started", slog.String("username", username))
	d.emit(EventLogin, username)
	return models.Session{Username: username, StartedAt: d.now()}, nil
}

// Logout clears the current session. It succeeds when no session exists.
func (d *Directory) Logout(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	username, _, err := d.store.Get(ctx, SessionKey)
	if err != nil {
		return apperr.Store("get session", err)
	}
	if err := d.store.Remove(ctx, SessionKey); err != nil {
		return apperr.Store("remove session", err)
	}
	if username != "" {
		d.logger.Info("session ended", slog.String("username", username))
		d.emit(EventLogout, username)
	}
	return nil
}

// Current returns the persisted session pointer, or ErrNoActiveSession. It
// does not check that the account still exists; front-ends use Resolve.
func (d *Directory) Current(ctx context.Context) (models.Session, error) {
	username, ok, err := d.store.Get(ctx, SessionKey)
	if err != nil {
		return models.Session{}, apperr.Store("get session", err)
	}
	if !ok || username == "" {
		return models.Session{}, apperr.ErrNoActiveSession
	}
	return models.Session{Username: username}, nil
}

// Resolve returns the current session after checking that it names a
// registered account. A pointer to an unknown account is ErrNoActiveSession.
func (d *Directory) Resolve(ctx context.Context) (models.Session, error) {
	s, err := d.Current(ctx)
	if err != nil {
		return models.Session{}, err
	}
	ok, err := d.Exists(ctx, s.Username)
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		d.logger.Warn("stale session ignored", slog.String("username", s.Username))
		return models.Session{}, apperr.ErrNoActiveSession
	}
	return s, nil
}

// Exists reports whether username is registered.
func (d *Directory) Exists(ctx context.Context, username string) (bool, error) {
	users, _, err := d.loadUsers(ctx)
	if err != nil {
		return false, err
	}
	_, ok := findUser(users, username)
	return ok, nil
}

// loadUsers reads the user list. found is false when the key is absent or empty.
func (d *Directory) loadUsers(ctx context.Context) (users []models.User, found bool, err error) {
	raw, ok, err := d.store.Get(ctx, UsersKey)
	if err != nil {
		return nil, false, apperr.Store("get users", err)
	}
	if !ok || raw == "" {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, true, apperr.Store("decode users", err)
	}
	return users, true, nil
}

func (d *Directory) saveUsers(ctx context.Context, users []models.User) error {
	data, err := json.Marshal(users)
	if err != nil {
		return apperr.Store("encode users", err)
	}
	if err := d.store.Set(ctx, UsersKey, string(data)); err != nil {
		return apperr.Store("set users", err)
	}
	return nil
}

func (d *Directory) emit(kind, username string) {
	if d.events != nil {
		d.events(kind, username)
	}
}

func findUser(users []models.User, username string) (models.User, bool) {
	for _, u := range users {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}
