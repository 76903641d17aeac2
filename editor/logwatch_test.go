package editor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCompletionWatcherFindsExistingFile(t *testing.T) {
	root := t.TempDir()
	w := NewCompletionWatcher(root, "task-1")

	if err := os.MkdirAll(filepath.Dir(w.File()), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(w.File(), []byte(`{"success": true, "frames": 12}`), 0644); err != nil {
		t.Fatalf("write completion file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := w.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result["success"] != true {
		t.Fatalf("unexpected result %v", result)
	}
	if _, err := os.Stat(w.File()); !os.IsNotExist(err) {
		t.Fatal("completion file should be deleted after consumption")
	}
}

func TestCompletionWatcherSeesLateFile(t *testing.T) {
	root := t.TempDir()
	w := NewCompletionWatcher(root, "task-2")

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.MkdirAll(filepath.Dir(w.File()), 0o755)
		_ = os.WriteFile(w.File(), []byte(`{"done": true}`), 0644)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := w.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if result["done"] != true {
		t.Fatalf("unexpected result %v", result)
	}
}

func TestCompletionWatcherTimeout(t *testing.T) {
	w := NewCompletionWatcher(t.TempDir(), "task-3")

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	if _, err := w.Wait(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
}
