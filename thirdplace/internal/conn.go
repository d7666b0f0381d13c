package internal

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/goccy/go-json"
)

// Conn wraps a read-only websocket feed with a per-frame read timeout.
type Conn struct {
	ws          *websocket.Conn
	readTimeout time.Duration
}

// Dial opens a websocket to url, bounded by handshakeTimeout when > 0.
func Dial(ctx context.Context, url string, handshakeTimeout, readTimeout time.Duration) (*Conn, error) {
	dialCtx := ctx
	if handshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, handshakeTimeout)
		defer cancel()
	}
	ws, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, err
	}
	// Room payloads can be large when many rooms are active.
	ws.SetReadLimit(1 << 20)
	return &Conn{ws: ws, readTimeout: readTimeout}, nil
}

// ReadFrame returns the next JSON frame undecoded.
func (c *Conn) ReadFrame(ctx context.Context) (json.RawMessage, error) {
	if c.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.readTimeout)
		defer cancel()
	}
	var frame json.RawMessage
	if err := wsjson.Read(ctx, c.ws, &frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}
