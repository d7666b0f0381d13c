package thirdplace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileQueue keeps the broadcast queue in a JSON file so that separate
// processes can share it. Watch turns writes to the file into storage
// change notifications.
type FileQueue struct {
	mu       sync.Mutex
	path     string
	key      string
	capacity int
}

// NewFileQueue stores the queue at path. key is reported to Watch callbacks.
func NewFileQueue(path, key string, capacity int) *FileQueue {
	return &FileQueue{path: path, key: key, capacity: capacity}
}

// Path returns the queue file location.
func (q *FileQueue) Path() string { return q.path }

// Load reads the file. A missing file is an empty queue.
func (q *FileQueue) Load(context.Context) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	raw, err := os.ReadFile(q.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, WrapError(ErrorMalformedFeed, "read queue file", err)
	}
	return raw, nil
}

// Append rewrites the file with b added at the tail.
func (q *FileQueue) Append(_ context.Context, b Batch) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, err := os.ReadFile(q.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return WrapError(ErrorMalformedFeed, "read queue file", err)
	}
	out, err := appendBatch(raw, b, q.capacity)
	if err != nil {
		return err
	}

	// Write to a sibling and rename so readers never see a half-written file.
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

// Watch calls fn with the queue key each time the file is written or
// replaced, until ctx is done. It watches the parent directory so that
// replacement by rename is seen.
func (q *FileQueue) Watch(ctx context.Context, fn func(key string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(q.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(q.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				fn(q.key)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch queue file: %w", err)
		}
	}
}
