package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Client talks to the chat host's HTTP endpoints. Write requests are paced by
// a rate limiter and all requests pass through a circuit breaker.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]byte]
	eventsPath string

	mu         sync.RWMutex
	onComplete func(path string, err error)
}

// NewClient creates a new REST client.
// baseURL should be the host root, e.g., "https://chat.example.com".
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		eventsPath: PathEvents,
	}
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "thirdplace-host",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors mean the host is up.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
	})
	return c
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetTimeout changes the HTTP client timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// SetRateLimit paces write requests. perSecond <= 0 removes the limit.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter.SetLimit(rate.Limit(perSecond))
	c.limiter.SetBurst(burst)
}

// SetEventsPath changes the endpoint Events posts to. Empty keeps the current one.
func (c *Client) SetEventsPath(path string) {
	if path != "" {
		c.eventsPath = path
	}
}

// EventsPath returns the endpoint Events posts to.
func (c *Client) EventsPath() string { return c.eventsPath }

// OnComplete registers a callback run after every request with the request path.
func (c *Client) OnComplete(fn func(path string, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// Messages

// EditMessage replaces the text of an existing message.
func (c *Client) EditMessage(ctx context.Context, messageID int64, text, fkey string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	_, err := c.postForm(ctx, EditPath(messageID), url.Values{
		"text": {text},
		"fkey": {fkey},
	})
	return err
}

// CreateMessage posts a new message to a room.
func (c *Client) CreateMessage(ctx context.Context, roomID int64, text, fkey string) (*PostResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	body, err := c.postForm(ctx, CreatePath(roomID), url.Values{
		"fkey": {fkey},
		"text": {text},
	})
	if err != nil {
		return nil, err
	}
	var resp PostResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

// Events

// Events asks the host for activity newer than the given per-room times and
// returns the raw response, a JSON object keyed by room key ("r42").
func (c *Client) Events(ctx context.Context, fkey string, since map[int64]int64) ([]byte, error) {
	form := url.Values{"fkey": {fkey}}
	ids := make([]int64, 0, len(since))
	for id := range since {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		form.Set("r"+strconv.FormatInt(id, 10), strconv.FormatInt(since[id], 10))
	}
	return c.postForm(ctx, c.eventsPath, form)
}

// Helper methods

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	body, err := c.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.do(req)
	})
	c.complete(path, err)
	return body, err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) complete(path string, err error) {
	c.mu.RLock()
	fn := c.onComplete
	c.mu.RUnlock()
	if fn != nil {
		fn(path, err)
	}
}
