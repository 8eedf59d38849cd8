package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/models"
)

func TestConfirm(t *testing.T) {
	cases := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" yes ":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"maybe\n": false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		if got := confirm(strings.NewReader(input), &out, "Delete?"); got != want {
			t.Errorf("confirm(%q) = %v, want %v", input, got, want)
		}
		if out.String() != "Delete? [y/N] " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestPrintNotes(t *testing.T) {
	var out bytes.Buffer
	notes := []models.Note{
		{ID: "1", Title: "Groceries", Completed: true},
		{ID: "2", Title: "Call mom"},
	}
	printNotes(&out, notes, models.CountNotes(notes))

	got := out.String()
	for _, want := range []string{"Groceries", "done", "Call mom", "pending", "total 2, completed 1, pending 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestReport(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{errors.New("note id argument is required"), "notas: note id argument is required\n"},
		{errors.New(`Required flag "title" not set`), "notas: Required flag \"title\" not set\n"},
		{fmt.Errorf("login: %w", apperr.ErrWrongPassword), "notas: unauthorized: wrong username or password\n"},
		{apperr.ErrNoActiveSession, "notas: unauthorized: no active session\n"},
	}
	for _, c := range cases {
		var out bytes.Buffer
		report(&out, c.err)
		if out.String() != c.want {
			t.Errorf("report(%v) = %q, want %q", c.err, out.String(), c.want)
		}
	}
}
