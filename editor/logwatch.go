package editor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/slighter12/unreal-mcp-go/logger"
)

// CompletionWatcher waits for a task completion file that an in-editor
// script writes under Saved/Logs when a long-running task finishes. The
// file carries the task result as JSON and is consumed (deleted) on read.
type CompletionWatcher struct {
	completionFile string
}

// NewCompletionWatcher creates a watcher for one task id under the given
// project root.
func NewCompletionWatcher(projectRoot, taskID string) *CompletionWatcher {
	return &CompletionWatcher{
		completionFile: filepath.Join(projectRoot, "Saved", "Logs", taskID+"_completed"),
	}
}

// File returns the path being watched.
func (w *CompletionWatcher) File() string { return w.completionFile }

// Wait blocks until the completion file appears, then reads, parses, and
// deletes it. Filesystem events drive the wakeup; a slow ticker backstops
// editors that write the file before the watch is registered.
func (w *CompletionWatcher) Wait(ctx context.Context) (map[string]any, error) {
	dir := filepath.Dir(w.completionFile)
	_ = os.MkdirAll(dir, 0o755)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return nil, err
	}

	logger.Info("Watching for completion file", "path", w.completionFile)

	// The file may already exist.
	if result, ok := w.consume(); ok {
		return result, nil
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil, fsnotify.ErrClosed
			}
			if event.Name != w.completionFile {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if result, ok := w.consume(); ok {
				return result, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil, fsnotify.ErrClosed
			}
			logger.Warn("Completion watcher error", "error", err)
		case <-ticker.C:
			if result, ok := w.consume(); ok {
				return result, nil
			}
		}
	}
}

// consume reads and deletes the completion file if present. A corrupt file
// is deleted and reported as absent so the caller keeps waiting until the
// editor rewrites it or the context expires.
func (w *CompletionWatcher) consume() (map[string]any, bool) {
	data, err := os.ReadFile(w.completionFile)
	if err != nil {
		return nil, false
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Error("Failed to parse completion file", "path", w.completionFile, "error", err)
		_ = os.Remove(w.completionFile)
		return nil, false
	}

	if err := os.Remove(w.completionFile); err != nil {
		logger.Warn("Failed to delete completion file", "path", w.completionFile, "error", err)
	}
	logger.Info("Found completion file", "path", w.completionFile)
	return result, true
}
