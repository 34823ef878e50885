package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdf-qa-platform/models"

	"github.com/gin-gonic/gin"
)

func TestRespondWithServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"validation", &models.ValidationError{Field: "question", Message: "Question is required"}, http.StatusBadRequest, "bad_request"},
		{"upstream", models.Upstream("gemini", "generate", errors.New("quota")), http.StatusInternalServerError, "upstream_error"},
		{"ingestion", &models.IngestionError{File: "a.pdf", Err: models.Upstream("embeddings", "embed", errors.New("down"))}, http.StatusInternalServerError, "ingestion_failed"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondWithServiceError(c, "Something failed", tt.err)

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.ErrorCode != tt.wantKind {
				t.Errorf("expected error_code %q, got %q", tt.wantKind, resp.ErrorCode)
			}
			if resp.Error == "" {
				t.Errorf("missing human-readable error")
			}
		})
	}
}
