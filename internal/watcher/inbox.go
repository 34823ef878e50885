// Package watcher ingests PDFs dropped into an inbox directory.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pdf-qa-platform/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// HandlerFunc processes one settled inbox file.
type HandlerFunc func(ctx context.Context, path string) error

// Inbox watches a directory for .pdf files. A file is handed to the
// handler once it has seen no writes for the debounce interval; files
// already present at startup are handled too.
type Inbox struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	handle   HandlerFunc
}

type settled struct {
	path string
	gen  int
}

func NewInbox(dir string, debounce time.Duration, handle HandlerFunc) (*Inbox, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Inbox{watcher: w, dir: dir, debounce: debounce, handle: handle}, nil
}

// Run blocks until ctx is done or the watcher is closed.
func (in *Inbox) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan settled)
	work := make(chan string, 100)

	var (
		mu       sync.Mutex
		inFlight = make(map[string]bool)
	)
	busy := func(path string) bool {
		mu.Lock()
		defer mu.Unlock()
		return inFlight[path]
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for path := range work {
			if err := in.handle(ctx, path); err != nil {
				logger.Error("Inbox file failed", "file", path, "error", err)
			}
			mu.Lock()
			delete(inFlight, path)
			mu.Unlock()
		}
	}()
	defer func() {
		close(work)
		wg.Wait()
	}()

	// Each schedule gets a new generation so a timer that fired before
	// being re-armed cannot deliver the same path twice.
	pending := make(map[string]*time.Timer)
	generation := make(map[string]int)
	seq := 0
	schedule := func(path string) {
		if busy(path) {
			return
		}
		if t, ok := pending[path]; ok {
			t.Stop()
		}
		seq++
		gen := seq
		generation[path] = gen
		pending[path] = time.AfterFunc(in.debounce, func() {
			select {
			case ready <- settled{path: path, gen: gen}:
			case <-ctx.Done():
			}
		})
	}

	for _, path := range in.existing() {
		schedule(path)
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			return nil
		case s := <-ready:
			if gen, ok := generation[s.path]; !ok || gen != s.gen {
				continue
			}
			delete(pending, s.path)
			delete(generation, s.path)
			if _, err := os.Stat(s.path); err != nil {
				continue
			}
			mu.Lock()
			inFlight[s.path] = true
			mu.Unlock()
			work <- s.path
		case event, ok := <-in.watcher.Events:
			if !ok {
				return nil
			}
			if !isPDF(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule(event.Name)
			}
		case err, ok := <-in.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Inbox watcher error", "dir", in.dir, "error", err)
		}
	}
}

func (in *Inbox) Close() error {
	return in.watcher.Close()
}

func (in *Inbox) existing() []string {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && isPDF(e.Name()) {
			out = append(out, filepath.Join(in.dir, e.Name()))
		}
	}
	return out
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
