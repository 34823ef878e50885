package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"pdf-qa-platform/models"
)

// UploadStore writes uploaded files under one directory using
// "<unix millis><ext>" names that strictly increase within the process.
type UploadStore struct {
	dir string

	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &UploadStore{dir: dir, now: time.Now}, nil
}

func (s *UploadStore) Dir() string { return s.dir }

// NextName returns a fresh stored name for originalName.
func (s *UploadStore) NextName(originalName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms

	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".pdf"
	}
	return strconv.FormatInt(ms, 10) + ext
}

// Save copies at most limit bytes of r into a newly named file and
// returns the stored name and full path.
func (s *UploadStore) Save(r io.Reader, originalName string, limit int64) (string, string, error) {
	name := s.NextName(originalName)
	path := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", "", fmt.Errorf("open destination: %w", err)
	}

	if limit > 0 {
		r = io.LimitReader(r, limit)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("save file: %w", err)
	}
	return name, path, nil
}

// Remove deletes a stored upload; a missing file is not an error.
func (s *UploadStore) Remove(name string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CheckPDF validates the declared type and the %PDF magic bytes, then
// rewinds r for the subsequent copy.
func CheckPDF(r io.ReadSeeker, filename, contentType string) error {
	if !strings.Contains(strings.ToLower(contentType), "pdf") && !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return &models.ValidationError{Field: "pdf", Message: "Only PDF files are allowed"}
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return &models.ValidationError{Field: "pdf", Message: "Cannot read file header"}
	}
	if string(header) != "%PDF" {
		return &models.ValidationError{Field: "pdf", Message: "File does not appear to be a valid PDF"}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind upload: %w", err)
	}
	return nil
}
