package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pdf-qa-platform/internal/logger"

	"github.com/go-co-op/gocron"
)

// RetentionSweeper periodically removes stored uploads older than MaxAge.
// Indexed chunks are not touched.
type RetentionSweeper struct {
	dir       string
	maxAge    time.Duration
	scheduler *gocron.Scheduler
}

func NewRetentionSweeper(dir string, maxAge time.Duration) *RetentionSweeper {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()

	return &RetentionSweeper{
		dir:       dir,
		maxAge:    maxAge,
		scheduler: s,
	}
}

// Start schedules the sweep at the given interval and runs it in the background.
func (r *RetentionSweeper) Start(every time.Duration) error {
	_, err := r.scheduler.Every(every).Tag("upload-retention").Do(func() {
		removed, err := r.Sweep(time.Now())
		if err != nil {
			logger.Error("Upload retention sweep failed", "dir", r.dir, "error", err)
			return
		}
		if removed > 0 {
			logger.Info("Upload retention sweep", "dir", r.dir, "removed", removed)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule retention sweep: %w", err)
	}
	r.scheduler.StartAsync()
	return nil
}

func (r *RetentionSweeper) Stop() {
	r.scheduler.Stop()
}

// Sweep deletes regular files whose modification time is older than
// now - maxAge and reports how many were removed.
func (r *RetentionSweeper) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-r.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(r.dir, entry.Name())); err != nil {
				logger.Warn("Failed to remove expired upload", "file", entry.Name(), "error", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}
