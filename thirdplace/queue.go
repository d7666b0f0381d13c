package thirdplace

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
)

// QueueSource supplies the serialized broadcast queue. It is read fresh on every poll.
type QueueSource interface {
	Load(ctx context.Context) ([]byte, error)
}

// QueueAppender is a QueueSource the SDK can write new batches to.
type QueueAppender interface {
	QueueSource
	Append(ctx context.Context, b Batch) error
}

// MemoryQueue is an in-process broadcast queue holding its serialized form,
// the way a browser keeps it in shared storage.
type MemoryQueue struct {
	mu       sync.Mutex
	raw      []byte
	capacity int
}

// NewMemoryQueue keeps at most capacity batches. capacity <= 0 means unbounded.
func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{capacity: capacity}
}

// Load returns a copy of the serialized queue.
func (q *MemoryQueue) Load(context.Context) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]byte(nil), q.raw...), nil
}

// Set replaces the serialized queue verbatim.
func (q *MemoryQueue) Set(raw []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.raw = append([]byte(nil), raw...)
}

// Append adds b at the tail, dropping the oldest batches beyond capacity.
func (q *MemoryQueue) Append(_ context.Context, b Batch) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	raw, err := appendBatch(q.raw, b, q.capacity)
	if err != nil {
		return err
	}
	q.raw = raw
	return nil
}

func appendBatch(raw []byte, b Batch, capacity int) ([]byte, error) {
	batches, err := ParseQueue(raw)
	if err != nil {
		return nil, err
	}
	batches = append(batches, b)
	if capacity > 0 && len(batches) > capacity {
		batches = batches[len(batches)-capacity:]
	}
	out, err := json.Marshal(batches)
	if err != nil {
		return nil, WrapError(ErrorMalformedFeed, "cannot serialize broadcast queue", err)
	}
	return out, nil
}
