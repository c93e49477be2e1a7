package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()

	var files []string
	var mu sync.Mutex
	onFile := func(path string) {
		mu.Lock()
		files = append(files, path)
		mu.Unlock()
	}
	w := NewWatcher(dir, []string{".txt"}, onFile)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	txt := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	png := filepath.Join(dir, "image.png")
	if err := os.WriteFile(png, []byte("not text"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(files) != 1 {
		t.Fatalf("expected one callback, got %v", files)
	}
	if files[0] != txt {
		t.Errorf("callback path = %s, want %s", files[0], txt)
	}
}

func TestWatcher_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	w := NewWatcher(dir, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("inbox directory not created: %v", err)
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	pre := filepath.Join(dir, "pre.txt")
	if err := os.WriteFile(pre, []byte("already here"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "skip.png"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	var files []string
	var mu sync.Mutex
	w := NewWatcher(dir, []string{".txt"}, func(path string) {
		mu.Lock()
		files = append(files, path)
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SyncExistingFiles()
	mu.Lock()
	defer mu.Unlock()
	if len(files) != 1 || files[0] != pre {
		t.Errorf("synced files = %v, want [%s]", files, pre)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{".txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
		{"/a/b.pdf", []string{"pdf"}, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(t.TempDir(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
