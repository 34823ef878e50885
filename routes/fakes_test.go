package routes

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"testing"

	"pdf-qa-platform/internal/queue"
	"pdf-qa-platform/models"
	"pdf-qa-platform/services"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeIngester struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeIngester) Ingest(ctx context.Context, filePath, originalName string) (*services.IngestResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filePath)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, err := os.Stat(filePath); err != nil {
		return nil, err
	}
	return &services.IngestResult{Source: originalName, Pages: 3, Chunks: 7}, nil
}

type fakeQueue struct {
	payloads []queue.IngestPayload
	statuses map[string]*models.TaskStatus
}

func (q *fakeQueue) EnqueueIngest(ctx context.Context, p queue.IngestPayload) (string, error) {
	q.payloads = append(q.payloads, p)
	return "task-1", nil
}

func (q *fakeQueue) Status(ctx context.Context, taskID string) (*models.TaskStatus, error) {
	if s, ok := q.statuses[taskID]; ok {
		return s, nil
	}
	return nil, queue.ErrTaskNotFound
}

type fakeChat struct {
	mu       sync.Mutex
	asked    []string
	sessions []string
	err      error
	turns    map[string][]models.Turn
	resets   []string
}

func (f *fakeChat) Answer(ctx context.Context, sessionID, question string) (*services.AnswerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, question)
	f.sessions = append(f.sessions, sessionID)
	if f.err != nil {
		return nil, f.err
	}
	return &services.AnswerResult{Answer: "The answer is 42.", StandaloneQuestion: question}, nil
}

func (f *fakeChat) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.turns[sessionID], nil
}

func (f *fakeChat) Reset(ctx context.Context, sessionID string) error {
	f.resets = append(f.resets, sessionID)
	return f.err
}

// multipartBody builds a request body with one file part
func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(content)
	} else {
		w.WriteField("note", "no file here")
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
