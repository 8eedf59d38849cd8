package apperr

import (
	"errors"
	"io"
	"testing"
)

func TestClasses(t *testing.T) {
	cases := []struct {
		err   error
		class error
	}{
		{ErrMissingFields, ErrValidation},
		{ErrInvalidPassword, ErrValidation},
		{ErrEmptyTitle, ErrValidation},
		{ErrEmptyContent, ErrValidation},
		{ErrAccountNotFound, ErrNotFound},
		{ErrUserNotFound, ErrNotFound},
		{ErrNoteNotFound, ErrNotFound},
		{ErrUsernameTaken, ErrConflict},
		{ErrChecksumMismatch, ErrConflict},
		{ErrWrongPassword, ErrUnauthorized},
		{ErrNoActiveSession, ErrUnauthorized},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.class) {
			t.Errorf("%v is not %v", c.err, c.class)
		}
	}
}

func TestStoreKeepsCause(t *testing.T) {
	err := Store("get users", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrStore) {
		t.Error("expected ErrStore")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected cause to be reachable")
	}
	if Store("noop", nil) != nil {
		t.Error("Store(nil) should be nil")
	}
}

func TestMessage(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), ErrNoteNotFound)
	if got := Message(wrapped); got != ErrNoteNotFound.Error() {
		t.Errorf("Message = %q, want %q", got, ErrNoteNotFound.Error())
	}
	if got := Message(Store("set", io.EOF)); got != "storage error" {
		t.Errorf("Message(store) = %q", got)
	}
	if got := Message(errors.New("boom")); got != "internal error" {
		t.Errorf("Message(unknown) = %q", got)
	}
	if got := Message(nil); got != "" {
		t.Errorf("Message(nil) = %q", got)
	}
}
