package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/models"
)

// FallbackAnswer is what the model is told to say when the context has no answer.
const FallbackAnswer = "I could not find the answer in the provided document."

// ContextSeparator joins retrieved chunk texts.
const ContextSeparator = "\n\n---\n\n"

const rewriteInstruction = `You are a query rewriting expert.
Rephrase the user's follow-up question into a standalone, context-independent question.
Only return the rewritten question.`

func answerInstruction(contextBlock string) string {
	return `You are an expert assistant answering questions about an uploaded document.
Answer the user's question **only** based on the context below.
If no relevant answer is found, reply:
"` + FallbackAnswer + `"

Context: ` + contextBlock
}

// ChatConfig tunes the retrieval loop
type ChatConfig struct {
	Namespace       string
	TopK            int
	HistoryWindow   int // turns sent to the model; zero sends everything
	MaxContextChars int // zero disables the bound
	Timeout         time.Duration
}

// AnswerResult is the outcome of one successful ask
type AnswerResult struct {
	Answer             string
	StandaloneQuestion string
	Sources            []models.Match
}

// ChatService answers questions against the indexed documents while
// keeping per-session conversation history.
type ChatService struct {
	generator TextGenerator
	embedder  Embedder
	index     VectorIndex
	history   HistoryStore
	cfg       ChatConfig
	locks     *sessionLocks
}

func NewChatService(generator TextGenerator, embedder Embedder, index VectorIndex, history HistoryStore, cfg ChatConfig) *ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	return &ChatService{
		generator: generator,
		embedder:  embedder,
		index:     index,
		history:   history,
		cfg:       cfg,
		locks:     newSessionLocks(),
	}
}

// Answer runs rewrite, retrieval and answer generation. On success the
// session history grows by the rewritten question and the answer; on any
// failure it is left untouched.
func (s *ChatService) Answer(ctx context.Context, sessionID, question string) (*AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &models.ValidationError{Field: "question", Message: "Question is required"}
	}
	sessionID = NormalizeSessionID(sessionID)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	stored, err := s.history.Load(ctx, sessionID)
	if err != nil {
		return nil, upstream("history", "load", err)
	}
	window := windowTurns(stored, s.cfg.HistoryWindow)

	standalone, err := s.rewrite(ctx, window, question)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedder.EmbedQuery(ctx, standalone)
	if err != nil {
		return nil, upstream("embeddings", "embed_query", err)
	}

	matches, err := s.index.Query(ctx, s.cfg.Namespace, vec, s.cfg.TopK)
	if err != nil {
		return nil, upstream("vector-index", "query", err)
	}
	contextBlock, used := BuildContext(matches, s.cfg.MaxContextChars)

	asked := models.Turn{Role: models.RoleUser, Text: standalone}
	contents := append(append(make([]models.Turn, 0, len(window)+1), window...), asked)

	answer, err := s.generator.Generate(ctx, answerInstruction(contextBlock), contents)
	if err != nil {
		return nil, upstream("gemini", "generate", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, upstream("gemini", "generate", models.ErrEmptyResponse)
	}

	if err := s.history.Append(ctx, sessionID, asked, models.Turn{Role: models.RoleModel, Text: answer}); err != nil {
		return nil, upstream("history", "append", err)
	}

	logger.Debug("Question answered",
		"session_id", sessionID,
		"standalone_question", standalone,
		"matches", len(matches),
		"context_chunks", used,
	)

	return &AnswerResult{
		Answer:             answer,
		StandaloneQuestion: standalone,
		Sources:            matches[:used],
	}, nil
}

// rewrite turns a follow-up into a standalone question. The question turn
// exists only in the request slice.
func (s *ChatService) rewrite(ctx context.Context, window []models.Turn, question string) (string, error) {
	contents := append(append(make([]models.Turn, 0, len(window)+1), window...),
		models.Turn{Role: models.RoleUser, Text: question})

	out, err := s.generator.Generate(ctx, rewriteInstruction, contents)
	if err != nil {
		return "", upstream("gemini", "rewrite", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", upstream("gemini", "rewrite", models.ErrEmptyResponse)
	}
	return out, nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	turns, err := s.history.Load(ctx, NormalizeSessionID(sessionID))
	if err != nil {
		return nil, upstream("history", "load", err)
	}
	return turns, nil
}

func (s *ChatService) Reset(ctx context.Context, sessionID string) error {
	sessionID = NormalizeSessionID(sessionID)

	unlock := s.locks.lock(sessionID)
	defer unlock()

	if err := s.history.Reset(ctx, sessionID); err != nil {
		return upstream("history", "reset", err)
	}
	return nil
}

// NormalizeSessionID maps a blank ID to the shared default session.
func NormalizeSessionID(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return models.DefaultSessionID
	}
	return sessionID
}

// BuildContext joins match texts in the order returned, stopping before
// the block would exceed maxChars. It returns the block and how many
// matches it contains.
func BuildContext(matches []models.Match, maxChars int) (string, int) {
	var sb strings.Builder
	used := 0
	for _, m := range matches {
		add := len(m.Chunk.Text)
		if used > 0 {
			add += len(ContextSeparator)
		}
		if maxChars > 0 && sb.Len()+add > maxChars {
			break
		}
		if used > 0 {
			sb.WriteString(ContextSeparator)
		}
		sb.WriteString(m.Chunk.Text)
		used++
	}
	return sb.String(), used
}

// windowTurns keeps the last n turns, starting on a user turn.
func windowTurns(turns []models.Turn, n int) []models.Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	w := turns[len(turns)-n:]
	for len(w) > 0 && w[0].Role != models.RoleUser {
		w = w[1:]
	}
	return w
}

// sessionLocks serializes work per session and forgets idle sessions.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
