// Package mcpserver exposes the signed-in account's notes as MCP tools over
// stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notas/internal/accounts"
	"github.com/starford/notas/internal/apperr"
	"github.com/starford/notas/internal/models"
	"github.com/starford/notas/internal/notes"
)

// RulesURI is the resource holding NoteRules.
const RulesURI = "notas://note-rules"

// Server wraps the MCP server with the notas tools.
type Server struct {
	mcp    *server.MCPServer
	dir    *accounts.Directory
	repo   *notes.Repository
	logger *slog.Logger
}

// New creates an MCP server with every tool registered.
func New(dir *accounts.Directory, repo *notes.Repository, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{dir: dir, repo: repo, logger: logger}

	s.mcp = server.NewMCPServer(
		"notas",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("whoami",
		mcp.WithDescription("Show the account that is currently signed in."),
	), s.whoami)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List the signed-in account's notes with total, completed and pending counts."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Find notes whose title contains the query, ignoring case."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to look for in note titles")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a single note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Read "+RulesURI+" for the accepted values."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title, not blank")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body, not blank")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the title and content of a note. Its id, completed flag and position are kept."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title, not blank")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New body, not blank")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("toggle_note",
		mcp.WithDescription("Mark a note completed, or pending again if it already was."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.toggleNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Permanently delete a note. Ask the user before calling."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true; the user agreed to delete")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("note_stats",
		mcp.WithDescription("Count all, completed and pending notes."),
	), s.noteStats)

	s.mcp.AddResource(
		mcp.NewResource(RulesURI, "Note Rules",
			mcp.WithResourceDescription("Account and note validation rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRulesResource,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// failure turns err into a tool error result. Store failures are logged
// since the client only sees a generic message.
func (s *Server) failure(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrStore) || apperr.Message(err) == "internal error" {
		s.logger.Error("mcp tool failed",
			slog.String("tool", tool),
			slog.String("error", err.Error()))
	}
	return mcp.NewToolResultError(apperr.Message(err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) whoami(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("whoami", err), nil
	}
	return mcp.NewToolResultText(sess.Username), nil
}

type noteList struct {
	Notes []models.Note `json:"notes"`
	Stats models.Stats  `json:"stats"`
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("list_notes", err), nil
	}
	all, err := s.repo.List(ctx, sess)
	if err != nil {
		return s.failure("list_notes", err), nil
	}
	return jsonResult(noteList{Notes: all, Stats: models.CountNotes(all)})
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("search_notes", err), nil
	}
	found, err := s.repo.Search(ctx, sess, query)
	if err != nil {
		return s.failure("search_notes", err), nil
	}
	return jsonResult(found)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("read_note", err), nil
	}
	n, err := s.repo.Get(ctx, sess, id)
	if err != nil {
		return s.failure("read_note", err), nil
	}
	return jsonResult(n)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("create_note", err), nil
	}
	n, err := s.repo.Create(ctx, sess, title, content)
	if err != nil {
		return s.failure("create_note", err), nil
	}
	return jsonResult(n)
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("update_note", err), nil
	}
	n, err := s.repo.Update(ctx, sess, id, title, content)
	if err != nil {
		return s.failure("update_note", err), nil
	}
	return jsonResult(n)
}

func (s *Server) toggleNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("toggle_note", err), nil
	}
	n, err := s.repo.ToggleComplete(ctx, sess, id)
	if err != nil {
		return s.failure("toggle_note", err), nil
	}
	return jsonResult(n)
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	confirm, err := req.RequireBool("confirm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !confirm {
		return mcp.NewToolResultError("deletion not confirmed"), nil
	}
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("delete_note", err), nil
	}
	if err := s.repo.Delete(ctx, sess, id); err != nil {
		return s.failure("delete_note", err), nil
	}
	return mcp.NewToolResultText("deleted: " + id), nil
}

func (s *Server) noteStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.dir.Resolve(ctx)
	if err != nil {
		return s.failure("note_stats", err), nil
	}
	st, err := s.repo.Stats(ctx, sess)
	if err != nil {
		return s.failure("note_stats", err), nil
	}
	return jsonResult(st)
}

func (s *Server) readRulesResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RulesURI,
			MIMEType: "text/markdown",
			Text:     NoteRules,
		},
	}, nil
}
