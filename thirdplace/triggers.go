package thirdplace

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// StorageChanged reports a change notification from the host's shared
// storage. Only the broadcast queue key triggers a poll.
func (c *Client) StorageChanged(key string) {
	if key != c.cfg.StorageKey {
		return
	}
	c.trigger(TriggerStorage)
}

// RequestCompleted reports that one of the host's HTTP requests finished.
// Only the events endpoint triggers a poll.
func (c *Client) RequestCompleted(path string) {
	if path != c.cfg.EventsPath {
		return
	}
	c.trigger(TriggerRequest)
}

// trigger hands the signal to Run's consumer, or polls in place when Run is
// not active. Pending signals coalesce: one queued poll covers them all.
func (c *Client) trigger(t Trigger) {
	c.mu.Lock()
	running := c.state == StateRunning
	c.mu.Unlock()

	if !running {
		c.pollFrom(context.Background(), t)
		return
	}
	select {
	case c.signals <- t:
	default:
	}
}

// pollFrom runs Poll for a trigger. Triggers are fire-and-forget, so errors
// end here after Poll has logged them.
func (c *Client) pollFrom(ctx context.Context, t Trigger) {
	n, err := c.Poll(ctx)
	if err != nil {
		return
	}
	if n > 0 {
		clientLogger{c}.Debug("trigger delivered events", map[string]any{"trigger": t.String(), "count": n})
	}
}

// Run starts the interval trigger and the consumer that serializes every
// poll. When the queue is a FileQueue its file is watched as the storage
// trigger. Run blocks until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		return NewError(ErrorAlreadyRunning, "client is already running")
	}
	c.state = StateRunning
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateStopped
		c.mu.Unlock()
	}()

	clientLogger{c}.Info("observer started", map[string]any{"version": Version, "poll_interval": c.cfg.PollInterval.String()})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case t := <-c.signals:
				c.pollFrom(gctx, t)
			}
		}
	})

	if c.cfg.PollInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(c.cfg.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					c.trigger(TriggerTimer)
				}
			}
		})
	}

	if fq, ok := c.queue.(*FileQueue); ok {
		g.Go(func() error {
			return fq.Watch(gctx, c.StorageChanged)
		})
	}

	return g.Wait()
}
