package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTextPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := "Opening hours are 9am to 6pm.\nClosed on public holidays.\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Text(path)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if got != content {
		t.Errorf("Text() = %q, want %q", got, content)
	}
}

func TestTextMarkdownFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faq.md")
	if err := os.WriteFile(path, []byte("# FAQ\n\nDelivery takes 3 days."), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Text(path)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if got == "" {
		t.Error("markdown extraction returned empty text")
	}
}

func TestTextUnsupportedFormat(t *testing.T) {
	_, err := Text("/tmp/image.png")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestTextMissingFile(t *testing.T) {
	_, err := Text(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
