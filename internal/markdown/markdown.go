// Package markdown converts notes to and from Markdown files with YAML
// frontmatter.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/notas/internal/models"
)

const (
	delim = "---"
	ext   = ".md"
)

// Frontmatter is the YAML header of an exported note.
type Frontmatter struct {
	ID        string `yaml:"id,omitempty"`
	Title     string `yaml:"title"`
	Completed bool   `yaml:"completed"`
}

// Document is a parsed Markdown file.
type Document struct {
	File string
	Frontmatter
	Body string
}

// Note returns the document as a note. The id is whatever the file carried.
func (d Document) Note() models.Note {
	return models.Note{ID: d.ID, Title: d.Title, Content: d.Body, Completed: d.Completed}
}

// Skipped records a file that could not be turned into a note.
type Skipped struct {
	File   string
	Reason string
}

// Render encodes n as frontmatter followed by the content, unchanged.
func Render(n models.Note) ([]byte, error) {
	fm, err := yaml.Marshal(Frontmatter{ID: n.ID, Title: n.Title, Completed: n.Completed})
	if err != nil {
		return nil, fmt.Errorf("markdown: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// Parse splits data into frontmatter and body. Without frontmatter, or with
// invalid YAML, the whole file is the body. A missing title falls back to the
// first "# " heading.
func Parse(data []byte) Document {
	var doc Document
	fm, body, ok := splitFrontmatter(data)
	if ok {
		if err := yaml.Unmarshal(fm, &doc.Frontmatter); err != nil {
			doc.Frontmatter = Frontmatter{}
			body = string(data)
		}
	}
	doc.Body = body
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = firstHeading(body)
	}
	return doc
}

func splitFrontmatter(data []byte) ([]byte, string, bool) {
	if !bytes.HasPrefix(data, []byte(delim+"\n")) {
		return nil, string(data), false
	}
	rest := data[len(delim)+1:]
	var end int
	switch {
	case bytes.HasPrefix(rest, []byte(delim+"\n")):
		end = 0
	default:
		idx := bytes.Index(rest, []byte("\n"+delim+"\n"))
		if idx < 0 {
			return nil, string(data), false
		}
		end = idx + 1
	}
	return rest[:end], string(rest[end+len(delim)+1:]), true
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// FileName returns the export file name for a note id.
func FileName(id string) string {
	return url.PathEscape(id) + ext
}

// WriteDir renders every note into dir as FileName(id), creating dir if
// needed. Existing files with the same name are replaced.
func WriteDir(dir string, notes []models.Note) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("markdown: create dir: %w", err)
	}
	for _, n := range notes {
		data, err := Render(n)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, FileName(n.ID))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("markdown: write %s: %w", path, err)
		}
	}
	return nil
}

// ReadDir parses every .md file directly inside dir, sorted by name. Files
// without a title or with a blank body are returned in skipped.
func ReadDir(dir string) (docs []Document, skipped []Skipped, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("markdown: read dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				skipped = append(skipped, Skipped{File: e.Name(), Reason: "permission denied"})
				continue
			}
			return nil, nil, fmt.Errorf("markdown: read %s: %w", e.Name(), err)
		}
		doc := Parse(data)
		doc.File = e.Name()
		switch {
		case strings.TrimSpace(doc.Title) == "":
			skipped = append(skipped, Skipped{File: e.Name(), Reason: "no title"})
		case strings.TrimSpace(doc.Body) == "":
			skipped = append(skipped, Skipped{File: e.Name(), Reason: "empty body"})
		default:
			docs = append(docs, doc)
		}
	}
	return docs, skipped, nil
}
