package thirdplace

import (
	"context"
	"errors"
	"io"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"

	"github.com/vovakirdan/thirdplace-sdk-go/thirdplace/internal"
)

// Refresh asks the host's events endpoint for activity in the given rooms
// since the last refresh, appends the answer to the queue as a new batch and
// then reports the completed request, which triggers a poll.
func (c *Client) Refresh(ctx context.Context, roomIDs ...int64) error {
	appender, ok := c.queue.(QueueAppender)
	if !ok {
		return NewError(ErrorNotConfigured, "queue does not accept new batches")
	}
	if c.cfg.BaseURL == "" {
		return NewError(ErrorNotConfigured, "no base URL configured")
	}
	fkey, err := c.token(ctx)
	if err != nil {
		return err
	}

	since := make(map[int64]int64, len(roomIDs))
	c.mu.Lock()
	for _, id := range roomIDs {
		since[id] = c.lastSeen[id]
	}
	c.mu.Unlock()

	payload, err := c.REST.Events(ctx, fkey, since)
	if err != nil {
		return WrapError(ErrorTransport, "fetch events", err)
	}
	if err := c.appendRooms(ctx, appender, payload); err != nil {
		return err
	}
	c.RequestCompleted(c.REST.EventsPath())
	return nil
}

// ConnectRelay dials the host's websocket feed and appends every frame to
// the queue as a batch, reporting each append as a storage change. It
// blocks until ctx is done or the connection fails.
func (c *Client) ConnectRelay(ctx context.Context, url string) error {
	appender, ok := c.queue.(QueueAppender)
	if !ok {
		return NewError(ErrorNotConfigured, "queue does not accept new batches")
	}
	if url == "" {
		return NewError(ErrorInvalidArgument, "empty URL")
	}

	conn, err := internal.Dial(ctx, url, c.cfg.HandshakeTimeout, c.cfg.ReadTimeout)
	if err != nil {
		return WrapError(ErrorTransport, "dial relay", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "client close") }()

	log := clientLogger{c}
	for {
		frame, err := conn.ReadFrame(ctx)
		if err != nil {
			if isExpectedDisconnect(ctx, err) {
				return nil
			}
			log.Warn("relay read loop exit", map[string]any{"error": err.Error()})
			return WrapError(ErrorTransport, "read relay frame", err)
		}
		if err := c.appendRooms(ctx, appender, frame); err != nil {
			log.Warn("dropping relay frame", map[string]any{"error": err.Error()})
			continue
		}
		c.StorageChanged(c.cfg.StorageKey)
	}
}

// appendRooms stores a room-keyed payload as a batch and remembers each
// room's "t" marker for the next refresh.
func (c *Client) appendRooms(ctx context.Context, q QueueAppender, payload []byte) error {
	feeds, err := FeedsFromRooms(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, f := range feeds {
		id, err := ParseRoomKey(f.Key)
		if err != nil {
			continue
		}
		var marker struct {
			T int64 `json:"t"`
		}
		if json.Unmarshal(f.Raw, &marker) == nil && marker.T > c.lastSeen[id] {
			c.lastSeen[id] = marker.T
		}
	}
	c.mu.Unlock()

	b := Batch{Time: c.nextBatchTime(), Content: BatchContent{Data: feeds}}
	if err := q.Append(ctx, b); err != nil {
		return err
	}
	return nil
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
