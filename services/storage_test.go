package services

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pdf-qa-platform/models"
)

func TestUploadStore_NamesIncreaseMonotonically(t *testing.T) {
	store, err := NewUploadStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	fixed := time.UnixMilli(1700000000000)
	store.now = func() time.Time { return fixed }

	first := store.NextName("report.pdf")
	second := store.NextName("report.pdf")
	third := store.NextName("notes.PDF")

	if first != "1700000000000.pdf" {
		t.Errorf("unexpected first name %q", first)
	}
	if second != "1700000000001.pdf" {
		t.Errorf("same millisecond should bump, got %q", second)
	}
	if third != "1700000000002.PDF" {
		t.Errorf("original extension should be kept, got %q", third)
	}
	if got := store.NextName("noext"); !strings.HasSuffix(got, ".pdf") {
		t.Errorf("missing extension should default to .pdf, got %q", got)
	}
}

func TestUploadStore_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewUploadStore(dir)

	name, path, err := store.Save(strings.NewReader("%PDF-1.4 body"), "a.pdf", 1<<20)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if filepath.Dir(path) != dir || filepath.Base(path) != name {
		t.Fatalf("unexpected path %q for name %q", path, name)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Remove(name); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := store.Remove(name); err != nil {
		t.Fatalf("removing twice should not fail: %v", err)
	}
}

func TestUploadStore_SaveHonorsLimit(t *testing.T) {
	store, _ := NewUploadStore(t.TempDir())

	_, path, err := store.Save(strings.NewReader("0123456789"), "a.pdf", 4)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if len(data) != 4 {
		t.Fatalf("expected 4 bytes, got %d", len(data))
	}
}

func TestCheckPDF(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		filename    string
		contentType string
		wantErr     bool
	}{
		{"valid by extension", "%PDF-1.7", "doc.pdf", "application/octet-stream", false},
		{"valid by content type", "%PDF-1.7", "doc", "application/pdf", false},
		{"wrong type", "%PDF-1.7", "doc.txt", "text/plain", true},
		{"bad magic", "hello world", "doc.pdf", "application/pdf", true},
		{"too short", "%P", "doc.pdf", "application/pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bytes.NewReader([]byte(tt.body))
			err := CheckPDF(r, tt.filename, tt.contentType)
			if tt.wantErr {
				if !models.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pos, _ := r.Seek(0, 1); pos != 0 {
				t.Errorf("reader not rewound, at %d", pos)
			}
		})
	}
}
