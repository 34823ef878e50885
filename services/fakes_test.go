package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pdf-qa-platform/models"
)

// fakeLoader implements DocumentLoader
type fakeLoader struct {
	pages []models.PageDocument
	err   error
	calls int32
}

func (f *fakeLoader) Load(ctx context.Context, path, source string) ([]models.PageDocument, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.PageDocument, len(f.pages))
	for i, p := range f.pages {
		p.Source = source
		out[i] = p
	}
	return out, nil
}

// keywordEmbedder maps text onto a fixed vocabulary so similarity follows
// shared keywords.
type keywordEmbedder struct {
	vocab []string

	mu       sync.Mutex
	calls    int
	failOn   func(text string) bool
	delay    time.Duration
	inFlight int32
	maxSeen  int32
}

func newKeywordEmbedder(vocab ...string) *keywordEmbedder {
	return &keywordEmbedder{vocab: vocab}
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.vocab)+1)
	for i, w := range e.vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(e.vocab)] = 0.01 // keeps every vector non-zero
	return vec
}

func (e *keywordEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	n := atomic.AddInt32(&e.inFlight, 1)
	defer atomic.AddInt32(&e.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&e.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&e.maxSeen, seen, n) {
			break
		}
	}

	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.failOn != nil && e.failOn(text) {
		return nil, errors.New("embedding service unavailable")
	}
	return e.vector(text), nil
}

func (e *keywordEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

func (e *keywordEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

func (e *keywordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// recordingIndex wraps an index and counts deletes
type recordingIndex struct {
	VectorIndex
	deletes int32
}

func (r *recordingIndex) DeleteDocument(ctx context.Context, namespace, documentID string) error {
	atomic.AddInt32(&r.deletes, 1)
	return r.VectorIndex.DeleteDocument(ctx, namespace, documentID)
}

type generateCall struct {
	instruction string
	contents    []models.Turn
}

// scriptedGenerator answers rewrite requests by resolving "it" against the
// last "function <name>" mentioned in history, and answer requests with
// the first context segment or the fallback phrase.
type scriptedGenerator struct {
	mu    sync.Mutex
	calls []generateCall

	rewriteErr  error
	answerErr   error
	emptyAnswer bool
}

var functionRef = regexp.MustCompile(`function \w+`)

func (g *scriptedGenerator) Generate(ctx context.Context, instruction string, contents []models.Turn) (string, error) {
	g.mu.Lock()
	cp := make([]models.Turn, len(contents))
	copy(cp, contents)
	g.calls = append(g.calls, generateCall{instruction: instruction, contents: cp})
	g.mu.Unlock()

	question := contents[len(contents)-1].Text

	if instruction == rewriteInstruction {
		if g.rewriteErr != nil {
			return "", g.rewriteErr
		}
		subject := ""
		for _, t := range contents[:len(contents)-1] {
			if m := functionRef.FindString(t.Text); m != "" {
				subject = m
			}
		}
		if subject != "" {
			question = strings.ReplaceAll(question, " it", " "+subject)
		}
		return "  " + question + "  ", nil
	}

	if g.answerErr != nil {
		return "", g.answerErr
	}
	if g.emptyAnswer {
		return "   ", nil
	}
	idx := strings.Index(instruction, "Context: ")
	block := strings.TrimSpace(instruction[idx+len("Context: "):])
	if block == "" {
		return FallbackAnswer, nil
	}
	return "According to the document: " + strings.Split(block, ContextSeparator)[0], nil
}

func (g *scriptedGenerator) callsSnapshot() []generateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]generateCall, len(g.calls))
	copy(out, g.calls)
	return out
}

// failingHistory fails appends on demand
type failingHistory struct {
	HistoryStore
	appendErr error
}

func (f *failingHistory) Append(ctx context.Context, sessionID string, turns ...models.Turn) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.HistoryStore.Append(ctx, sessionID, turns...)
}
