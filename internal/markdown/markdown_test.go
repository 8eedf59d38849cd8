package markdown

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notas/internal/models"
)

func TestRender(t *testing.T) {
	data, err := Render(models.Note{ID: "n1", Title: "Groceries", Content: "Milk, eggs", Completed: true})
	if err != nil {
		t.Fatal(err)
	}
	want := "---\nid: n1\ntitle: Groceries\ncompleted: true\n---\nMilk, eggs"
	if string(data) != want {
		t.Errorf("Render = %q, want %q", data, want)
	}
}

func TestRenderParse_KeepsText(t *testing.T) {
	notes := []models.Note{
		{ID: "a", Title: "  padded  ", Content: "\n\nstarts with blank lines\n"},
		{ID: "b", Title: "colon: and # hash", Content: "---\nnot frontmatter\n---\n"},
		{ID: "c", Title: "Ünïcödé", Content: "x", Completed: true},
	}
	for _, n := range notes {
		data, err := Render(n)
		if err != nil {
			t.Fatal(err)
		}
		if got := Parse(data).Note(); got != n {
			t.Errorf("Parse(Render(%+v)) = %+v", n, got)
		}
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	doc := Parse([]byte("# Just a heading\nSome text.\n"))
	if doc.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", doc.Title, "Just a heading")
	}
	if doc.Body != "# Just a heading\nSome text.\n" {
		t.Errorf("body = %q", doc.Body)
	}
	if doc.Completed || doc.ID != "" {
		t.Errorf("frontmatter = %+v, want zero", doc.Frontmatter)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	doc := Parse([]byte(input))
	if doc.Body != input {
		t.Errorf("body = %q, want whole file", doc.Body)
	}
	if doc.Title != "" {
		t.Errorf("title = %q, want empty", doc.Title)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	input := "---\ntitle: x\nbody without closing"
	if doc := Parse([]byte(input)); doc.Body != input || doc.Title != "" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestParse_EmptyFrontmatter(t *testing.T) {
	doc := Parse([]byte("---\n---\n# Heading\nbody"))
	if doc.Title != "Heading" || doc.Body != "# Heading\nbody" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestWriteReadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "export")
	notes := []models.Note{
		{ID: "1", Title: "one", Content: "first"},
		{ID: "2", Title: "two", Content: "second", Completed: true},
	}
	if err := WriteDir(dir, notes); err != nil {
		t.Fatalf("WriteDir: %v", err)
	}

	// Files that must be skipped or ignored.
	_ = os.WriteFile(filepath.Join(dir, "notitle.md"), []byte("just text"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "empty.md"), []byte("---\ntitle: t\n---\n  \n"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("# Not markdown\nx"), 0o644)
	_ = os.Mkdir(filepath.Join(dir, "sub.md"), 0o755)

	docs, skipped, err := ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %+v, want 2", docs)
	}
	for i, d := range docs {
		if d.Note() != notes[i] {
			t.Errorf("doc %d = %+v, want %+v", i, d.Note(), notes[i])
		}
		if d.File != FileName(notes[i].ID) {
			t.Errorf("file = %q", d.File)
		}
	}
	want := map[string]string{"empty.md": "empty body", "notitle.md": "no title"}
	if len(skipped) != len(want) {
		t.Fatalf("skipped = %+v", skipped)
	}
	for _, s := range skipped {
		if want[s.File] != s.Reason {
			t.Errorf("skipped %s: %q, want %q", s.File, s.Reason, want[s.File])
		}
	}
}

func TestReadDir_Missing(t *testing.T) {
	if _, _, err := ReadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing dir")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("../x"); filepath.Base(got) != got {
		t.Errorf("FileName escapes dir: %q", got)
	}
}
