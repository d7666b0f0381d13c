package thirdplace

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vovakirdan/thirdplace-sdk-go/thirdplace/rest"
)

// TokenProvider returns the host's current freshness (anti-forgery) token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed value.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Client observes a broadcast queue and republishes its chat activity as
// typed events.
type Client struct {
	cfg    Config
	debug  atomic.Bool
	logger Logger

	dir        *Directory
	decoder    *Decoder
	watermark  *Watermark
	reader     *Reader
	dispatcher *Dispatcher
	queue      QueueSource
	REST       *rest.Client

	mu        sync.Mutex
	tokens    TokenProvider
	state     RunState
	signals   chan Trigger
	lastSeen  map[int64]int64
	lastBatch int64
}

// NewClient constructs a client reading queue. A nil queue gets a
// MemoryQueue sized by cfg.QueueCapacity.
// Use DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config, queue QueueSource) *Client {
	if queue == nil {
		queue = NewMemoryQueue(cfg.QueueCapacity)
	}
	c := &Client{
		cfg:       cfg,
		logger:    noopLogger{},
		dir:       NewDirectory(),
		watermark: &Watermark{},
		queue:     queue,
		tokens:    StaticToken(cfg.Token),
		signals:   make(chan Trigger, 1),
		lastSeen:  make(map[int64]int64),
	}
	c.debug.Store(cfg.Debug)

	log := clientLogger{c}
	c.decoder = NewDecoder(c.dir, log)
	c.decoder.client = c
	c.reader = NewReader(queue, c.decoder, c.watermark, nil, log)
	c.dispatcher = NewDispatcher(cfg.HandlerTimeout, nil, log)

	c.REST = rest.NewClient(cfg.BaseURL)
	if cfg.RequestTimeout > 0 {
		c.REST.SetTimeout(cfg.RequestTimeout)
	}
	c.REST.SetRateLimit(cfg.PostRate, cfg.PostBurst)
	c.REST.SetEventsPath(cfg.EventsPath)
	c.REST.OnComplete(func(path string, err error) {
		fields := map[string]any{"path": path}
		if err != nil {
			fields["error"] = err.Error()
		}
		log.Debug("request completed", fields)
	})
	return c
}

// SetLogger overrides logger (optional).
func (c *Client) SetLogger(l Logger) {
	if l == nil {
		return
	}
	c.mu.Lock()
	c.logger = l
	c.mu.Unlock()
}

// SetDebug toggles debug traces.
func (c *Client) SetDebug(on bool) { c.debug.Store(on) }

// Debug reports whether debug traces are enabled.
func (c *Client) Debug() bool { return c.debug.Load() }

// SetTokenProvider overrides the freshness token source.
func (c *Client) SetTokenProvider(p TokenProvider) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.tokens = p
	c.mu.Unlock()
}

// SetHTTPClient allows setting a custom HTTP client for host requests.
func (c *Client) SetHTTPClient(hc *http.Client) { c.REST.SetHTTPClient(hc) }

// SetMetrics enables pipeline metrics.
func (c *Client) SetMetrics(m *Metrics) {
	c.reader.setMetrics(m)
	c.dispatcher.setMetrics(m)
}

// Directory returns the client's identity cache.
func (c *Client) Directory() *Directory { return c.dir }

// RoomByID returns the canonical room for id.
func (c *Client) RoomByID(id int64) *Room { return c.dir.RoomByID(id) }

// UserByID returns the canonical user for id.
func (c *Client) UserByID(id int64) *User { return c.dir.UserByID(id) }

// CurrentRoomFromLocation derives the room from a /rooms/<id>/<name> path.
func (c *Client) CurrentRoomFromLocation(path string) (*Room, bool) {
	return c.dir.CurrentRoomFromLocation(path)
}

// Watermark returns the time of the last processed batch.
func (c *Client) Watermark() int64 { return c.watermark.Value() }

// State returns the run state.
func (c *Client) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers h for events of type t.
func (c *Client) Subscribe(t EventType, h Handler) error {
	return c.dispatcher.Subscribe(t, h)
}

// OnNewMessage registers callback for new message events.
func (c *Client) OnNewMessage(fn func(*NewMessage)) error {
	if fn == nil {
		return NewError(ErrorInvalidArgument, "handler must be a function")
	}
	return c.Subscribe(EventNewMessage, func(_ context.Context, ev Event) error {
		fn(ev.(*NewMessage))
		return nil
	})
}

// OnEditMessage registers callback for edit message events.
func (c *Client) OnEditMessage(fn func(*EditMessage)) error {
	if fn == nil {
		return NewError(ErrorInvalidArgument, "handler must be a function")
	}
	return c.Subscribe(EventEditMessage, func(_ context.Context, ev Event) error {
		fn(ev.(*EditMessage))
		return nil
	})
}

// OnError registers callback for handler failures.
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// Poll runs the pipeline once: it reads the queue, decodes new batches and
// publishes every event. It returns the number of events published.
func (c *Client) Poll(ctx context.Context) (int, error) {
	log := withFields(clientLogger{c}, map[string]any{"correlation_id": newCorrelationID()})

	events, err := c.reader.PullNewEvents(ctx)
	if err != nil {
		log.Warn("poll aborted", map[string]any{"error": err.Error(), "watermark": c.watermark.Value()})
		return 0, err
	}
	log.Debug("poll received events", map[string]any{"count": len(events), "watermark": c.watermark.Value()})

	for _, ev := range events {
		c.dispatcher.Publish(ctx, ev)
	}
	return len(events), nil
}

// Post edits m when it has an ID and creates it otherwise.
func (c *Client) Post(ctx context.Context, m *Message) error {
	if err := m.checkPostable(); err != nil {
		return err
	}
	if c.cfg.BaseURL == "" {
		return NewError(ErrorNotConfigured, "no base URL configured")
	}
	fkey, err := c.token(ctx)
	if err != nil {
		return err
	}

	if m.ID != 0 {
		if err := c.REST.EditMessage(ctx, m.ID, m.Content, fkey); err != nil {
			return WrapError(ErrorTransport, "edit message", err)
		}
		return nil
	}

	resp, err := c.REST.CreateMessage(ctx, m.RoomID, m.Content, fkey)
	if err != nil {
		return WrapError(ErrorTransport, "create message", err)
	}
	m.ID = resp.ID
	if m.client == nil {
		m.client = c
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	p := c.tokens
	c.mu.Unlock()
	fkey, err := p.Token(ctx)
	if err != nil {
		return "", WrapError(ErrorNotConfigured, "freshness token unavailable", err)
	}
	return fkey, nil
}

// nextBatchTime returns a batch time in milliseconds that is later than any
// batch this client appended and than the watermark.
func (c *Client) nextBatchTime() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := time.Now().UnixMilli()
	if floor := max(c.lastBatch, c.watermark.Value()); t <= floor {
		t = floor + 1
	}
	c.lastBatch = t
	return t
}

// clientLogger forwards to the client's current logger and drops debug
// traces while debugging is off.
type clientLogger struct{ c *Client }

func (l clientLogger) current() Logger {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	return l.c.logger
}

func (l clientLogger) Debug(msg string, fields map[string]any) {
	if l.c.debug.Load() {
		l.current().Debug(msg, fields)
	}
}

func (l clientLogger) Info(msg string, fields map[string]any)  { l.current().Info(msg, fields) }
func (l clientLogger) Warn(msg string, fields map[string]any)  { l.current().Warn(msg, fields) }
func (l clientLogger) Error(msg string, fields map[string]any) { l.current().Error(msg, fields) }

// fieldLogger adds fixed fields to every entry.
type fieldLogger struct {
	Logger
	fields map[string]any
}

func withFields(l Logger, fields map[string]any) Logger {
	return fieldLogger{Logger: l, fields: fields}
}

func (f fieldLogger) merge(fields map[string]any) map[string]any {
	out := make(map[string]any, len(f.fields)+len(fields))
	for k, v := range f.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (f fieldLogger) Debug(msg string, fields map[string]any) { f.Logger.Debug(msg, f.merge(fields)) }
func (f fieldLogger) Info(msg string, fields map[string]any)  { f.Logger.Info(msg, f.merge(fields)) }
func (f fieldLogger) Warn(msg string, fields map[string]any)  { f.Logger.Warn(msg, f.merge(fields)) }
func (f fieldLogger) Error(msg string, fields map[string]any) { f.Logger.Error(msg, f.merge(fields)) }
