package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/models"
	"pdf-qa-platform/services"
	"pdf-qa-platform/utils"

	"github.com/gin-gonic/gin"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%EOF\n")

func newUploadRouter(t *testing.T, ingester Ingester, tasks TaskQueue) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := services.NewUploadStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	router := gin.New()
	SetupUploadRoutes(router, &config.Config{MaxFileSize: 1 << 20}, store, ingester, tasks)
	return router, dir
}

func uploadRequest(t *testing.T, field, filename, contentType string, content []byte, query string) *http.Request {
	body, ct := multipartBody(t, field, filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/upload"+query, body)
	req.Header.Set("Content-Type", ct)
	return req
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUpload_MissingFileDoesNoWork(t *testing.T) {
	ingester := &fakeIngester{}
	router, dir := newUploadRouter(t, ingester, nil)

	w := serve(router, uploadRequest(t, "", "", "", nil, ""))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(ingester.calls) != 0 {
		t.Errorf("ingester should not run, got %d calls", len(ingester.calls))
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Errorf("nothing should be stored, found %v", files)
	}

	var resp utils.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error == "" {
		t.Errorf("expected a human-readable error, got %s", w.Body.String())
	}
}

func TestUpload_WrongFieldNameIsMissingFile(t *testing.T) {
	ingester := &fakeIngester{}
	router, _ := newUploadRouter(t, ingester, nil)

	w := serve(router, uploadRequest(t, "file", "doc.pdf", "application/pdf", samplePDF, ""))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(ingester.calls) != 0 {
		t.Errorf("ingester should not run")
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
	}{
		{"text file", "notes.txt", "text/plain", []byte("hello")},
		{"pdf extension without magic", "fake.pdf", "application/pdf", []byte("<html></html>")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingester := &fakeIngester{}
			router, dir := newUploadRouter(t, ingester, nil)

			w := serve(router, uploadRequest(t, "pdf", tt.filename, tt.contentType, tt.content, ""))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if len(ingester.calls) != 0 || len(storedFiles(t, dir)) != 0 {
				t.Errorf("rejected upload must not be stored or ingested")
			}
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	ingester := &fakeIngester{}
	router, _ := newUploadRouter(t, ingester, nil)

	big := append(append([]byte{}, samplePDF...), make([]byte, 2<<20)...)
	w := serve(router, uploadRequest(t, "pdf", "big.pdf", "application/pdf", big, ""))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if len(ingester.calls) != 0 {
		t.Errorf("ingester should not run")
	}
}

func TestUpload_IngestsSynchronously(t *testing.T) {
	ingester := &fakeIngester{}
	router, dir := newUploadRouter(t, ingester, nil)

	w := serve(router, uploadRequest(t, "pdf", "Guide.PDF", "application/pdf", samplePDF, ""))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "PDF uploaded successfully" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if !strings.HasSuffix(resp.FileName, ".PDF") {
		t.Errorf("stored name should keep the original extension, got %q", resp.FileName)
	}
	if resp.Chunks != 7 {
		t.Errorf("expected chunk count from ingester, got %d", resp.Chunks)
	}
	if len(ingester.calls) != 1 || ingester.calls[0] != filepath.Join(dir, resp.FileName) {
		t.Errorf("ingester should receive the stored path, got %v", ingester.calls)
	}

	saved, err := os.ReadFile(filepath.Join(dir, resp.FileName))
	if err != nil || string(saved) != string(samplePDF) {
		t.Errorf("stored file does not match upload: %v", err)
	}
}

func TestUpload_IngestFailureReturns500(t *testing.T) {
	ingester := &fakeIngester{err: &models.IngestionError{File: "doc.pdf", Err: errors.New("embeddings down")}}
	router, dir := newUploadRouter(t, ingester, nil)

	w := serve(router, uploadRequest(t, "pdf", "doc.pdf", "application/pdf", samplePDF, ""))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp utils.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Failed to upload PDF" {
		t.Errorf("unexpected error message %q", resp.Error)
	}
	if details, _ := resp.Details.(string); !strings.Contains(details, "embeddings down") {
		t.Errorf("details should carry the cause, got %v", resp.Details)
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Errorf("failed upload should be removed, found %v", files)
	}
}

func TestUpload_AsyncEnqueues(t *testing.T) {
	ingester := &fakeIngester{}
	tasks := &fakeQueue{}
	router, dir := newUploadRouter(t, ingester, tasks)

	w := serve(router, uploadRequest(t, "pdf", "doc.pdf", "application/pdf", samplePDF, "?async=true"))

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.UploadResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.TaskID != "task-1" {
		t.Errorf("expected task ID, got %q", resp.TaskID)
	}
	if len(ingester.calls) != 0 {
		t.Errorf("async upload must not ingest inline")
	}
	if len(tasks.payloads) != 1 {
		t.Fatalf("expected one enqueued task, got %d", len(tasks.payloads))
	}
	p := tasks.payloads[0]
	if p.OriginalName != "doc.pdf" || p.FilePath != filepath.Join(dir, p.StoredName) {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestUpload_AsyncWithoutQueue(t *testing.T) {
	router, dir := newUploadRouter(t, &fakeIngester{}, nil)

	w := serve(router, uploadRequest(t, "pdf", "doc.pdf", "application/pdf", samplePDF, "?async=true"))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if files := storedFiles(t, dir); len(files) != 0 {
		t.Errorf("upload should be discarded, found %v", files)
	}
}

func TestUploadStatus(t *testing.T) {
	tasks := &fakeQueue{statuses: map[string]*models.TaskStatus{
		"abc": {TaskID: "abc", State: "failed", LastError: "embeddings down"},
	}}
	router, _ := newUploadRouter(t, &fakeIngester{}, tasks)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/upload/status/abc", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status models.TaskStatus
	json.Unmarshal(w.Body.Bytes(), &status)
	if status.State != "failed" || status.LastError != "embeddings down" {
		t.Errorf("unexpected status %+v", status)
	}

	w = serve(router, httptest.NewRequest(http.MethodGet, "/upload/status/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown task, got %d", w.Code)
	}
}

func TestUploadStatus_QueueDisabled(t *testing.T) {
	router, _ := newUploadRouter(t, &fakeIngester{}, nil)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/upload/status/abc", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
