package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/markdown"
)

// ImportReport summarizes an Import run.
type ImportReport struct {
	Created int
	Skipped []markdown.Skipped
}

// Export writes the current session's notes to dir, one Markdown file per note.
func (app *App) Export(ctx context.Context, dir string) (int, error) {
	s, err := app.Directory.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	all, err := app.Notes.List(ctx, s)
	if err != nil {
		return 0, err
	}
	if err := markdown.WriteDir(dir, all); err != nil {
		return 0, err
	}
	app.Logger.Info("notes exported",
		slog.String("username", s.Username),
		slog.String("dir", dir),
		slog.Int("count", len(all)))
	return len(all), nil
}

// Import creates a note for every usable Markdown file in dir. Notes get new
// ids; files marked completed are toggled after creation. Files that fail
// note validation are skipped rather than aborting the run.
func (app *App) Import(ctx context.Context, dir string) (ImportReport, error) {
	var rep ImportReport
	s, err := app.Directory.Resolve(ctx)
	if err != nil {
		return rep, err
	}
	docs, skipped, err := markdown.ReadDir(dir)
	if err != nil {
		return rep, err
	}
	rep.Skipped = skipped

	for _, d := range docs {
		n, err := app.Notes.Create(ctx, s, d.Title, d.Body)
		if err != nil {
			if errors.Is(err, apperr.ErrValidation) {
				rep.Skipped = append(rep.Skipped, markdown.Skipped{File: d.File, Reason: err.Error()})
				continue
			}
			return rep, fmt.Errorf("import %s: %w", d.File, err)
		}
		if d.Completed {
			if _, err := app.Notes.ToggleComplete(ctx, s, n.ID); err != nil {
				return rep, fmt.Errorf("import %s: %w", d.File, err)
			}
		}
		rep.Created++
	}

	app.Logger.Info("notes imported",
		slog.String("username", s.Username),
		slog.String("dir", dir),
		slog.Int("created", rep.Created),
		slog.Int("skipped", len(rep.Skipped)))
	return rep, nil
}
