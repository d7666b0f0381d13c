package thirdplace

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// batchJSON renders one queue batch whose data holds the given room entries,
// each already serialized, in the given order.
func batchJSON(time int64, rooms ...string) string {
	return fmt.Sprintf(`{"time":%d,"content":{"data":{%s}}}`, time, strings.Join(rooms, ","))
}

// roomJSON renders a room entry with an "e" list.
func roomJSON(key string, events ...string) string {
	return fmt.Sprintf(`%q:{"e":[%s]}`, key, strings.Join(events, ","))
}

func queueJSON(batches ...string) []byte {
	return []byte("[" + strings.Join(batches, ",") + "]")
}

func rawEventJSON(eventType int, roomID int64, roomName string, userID int64, userName, content string) string {
	return fmt.Sprintf(`{"event_type":%d,"room_id":%d,"room_name":%q,"user_id":%d,"user_name":%q,"content":%q}`,
		eventType, roomID, roomName, userID, userName, content)
}

// recordingLogger keeps every entry for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

func (r *recordingLogger) add(level, msg string, fields map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{Level: level, Msg: msg, Fields: fields})
}

func (r *recordingLogger) Debug(msg string, fields map[string]any) { r.add("debug", msg, fields) }
func (r *recordingLogger) Info(msg string, fields map[string]any)  { r.add("info", msg, fields) }
func (r *recordingLogger) Warn(msg string, fields map[string]any)  { r.add("warn", msg, fields) }
func (r *recordingLogger) Error(msg string, fields map[string]any) { r.add("error", msg, fields) }

func (r *recordingLogger) count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// failingSource always fails to load.
type failingSource struct{ err error }

func (f failingSource) Load(context.Context) ([]byte, error) { return nil, f.err }
