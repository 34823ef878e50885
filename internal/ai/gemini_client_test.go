package ai

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"pdf-qa-platform/internal/config"
	"pdf-qa-platform/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/sony/gobreaker"
)

func TestDoWrapsFailuresAsUpstream(t *testing.T) {
	g := NewGuard("test", 6000, time.Second, nil)
	boom := errors.New("boom")

	_, err := Do(context.Background(), g, "generate", func(ctx context.Context) (string, error) {
		return "", boom
	})

	var ue *models.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if ue.Service != "test" || ue.Op != "generate" {
		t.Fatalf("unexpected service/op: %s/%s", ue.Service, ue.Op)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestDoReturnsValue(t *testing.T) {
	g := NewGuard("test", 6000, time.Second, nil)

	got, err := Do(context.Background(), g, "embed", func(ctx context.Context) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 values, got %d", len(got))
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	g := NewGuard("test", 6000, time.Second, nil)
	calls := 0
	fail := func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("unavailable")
	}

	for i := 0; i < 3; i++ {
		_, _ = Do(context.Background(), g, "generate", fail)
	}
	if g.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", g.State())
	}

	_, err := Do(context.Background(), g, "generate", fail)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("open breaker must not call upstream, calls=%d", calls)
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	g := NewGuard("test", 6000, time.Second, nil)

	for i := 0; i < 5; i++ {
		_, _ = Do(context.Background(), g, "generate", func(ctx context.Context) (string, error) {
			return "", context.Canceled
		})
	}
	if g.State() != gobreaker.StateClosed {
		t.Fatalf("cancellations must not trip the breaker, state=%s", g.State())
	}
}

func TestDoAppliesTimeout(t *testing.T) {
	g := NewGuard("test", 6000, 20*time.Millisecond, nil)

	_, err := Do(context.Background(), g, "generate", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSplitConversation(t *testing.T) {
	tests := []struct {
		name    string
		turns   []models.Turn
		history int
		last    string
		wantErr bool
	}{
		{name: "empty", wantErr: true},
		{
			name:  "single user turn",
			turns: []models.Turn{{Role: models.RoleUser, Text: "hi"}},
			last:  "hi",
		},
		{
			name: "history then user",
			turns: []models.Turn{
				{Role: models.RoleUser, Text: "q1"},
				{Role: models.RoleModel, Text: "a1"},
				{Role: models.RoleUser, Text: "q2"},
			},
			history: 2,
			last:    "q2",
		},
		{
			name:    "ends with model",
			turns:   []models.Turn{{Role: models.RoleModel, Text: "a"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, last, err := splitConversation(tt.turns)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(history) != tt.history {
				t.Fatalf("history len = %d, want %d", len(history), tt.history)
			}
			if last != tt.last {
				t.Fatalf("last = %q, want %q", last, tt.last)
			}
		})
	}
}

func TestToContentsKeepsRoles(t *testing.T) {
	contents := toContents([]models.Turn{
		{Role: models.RoleUser, Text: "q"},
		{Role: models.RoleModel, Text: "a"},
	})
	if contents[0].Role != "user" || contents[1].Role != "model" {
		t.Fatalf("roles not preserved: %s, %s", contents[0].Role, contents[1].Role)
	}
	if txt, ok := contents[1].Parts[0].(genai.Text); !ok || string(txt) != "a" {
		t.Fatalf("unexpected part: %#v", contents[1].Parts[0])
	}
}

func TestExtractResponseText(t *testing.T) {
	if got := extractResponseText(nil); got != "" {
		t.Fatalf("nil response should give empty text, got %q", got)
	}
	if got := extractResponseText(&genai.GenerateContentResponse{}); got != "" {
		t.Fatalf("no candidates should give empty text, got %q", got)
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello, "), genai.Text("world")}},
		}},
		UsageMetadata: &genai.UsageMetadata{TotalTokenCount: 12},
	}
	if got := extractResponseText(resp); got != "Hello, world" {
		t.Fatalf("got %q", got)
	}
	if got := extractTokenUsage(resp); got != 12 {
		t.Fatalf("tokens = %d", got)
	}
}

func TestGeminiLive(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Skipf("config load failed: %v", err)
	}
	gc, err := NewGeminiClient(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("client error: %v", err)
	}
	defer gc.Close()

	vec, err := gc.EmbedQuery(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("embedding error: %v", err)
	}
	if len(vec) == 0 {
		t.Fatalf("empty embedding")
	}
}
