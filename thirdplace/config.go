package thirdplace

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// Version of the library.
	Version = "0.6a"

	// DefaultStorageKey names the broadcast queue in the host's shared storage.
	DefaultStorageKey = "chat:broadcastQueue"

	// DefaultEventsPath is the host endpoint whose completion signals fresh events.
	DefaultEventsPath = "/events"
)

// Config controls how the SDK reads the feed and talks to the host.
type Config struct {
	// BaseURL of the chat host, e.g. "https://chat.example.com". Required for posting.
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`

	// Debug enables debug traces of pipeline activity.
	Debug bool `koanf:"debug"`

	StorageKey string `koanf:"storage_key" validate:"required"`
	EventsPath string `koanf:"events_path" validate:"required,startswith=/"`

	// PollInterval drives the timer trigger. Zero disables it.
	PollInterval time.Duration `koanf:"poll_interval" validate:"gte=0"`

	// HandlerTimeout bounds a single handler call. Zero waits forever.
	HandlerTimeout time.Duration `koanf:"handler_timeout" validate:"gte=0"`

	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gte=0"`

	// PostRate is the sustained number of write requests per second.
	PostRate  float64 `koanf:"post_rate" validate:"gte=0"`
	PostBurst int     `koanf:"post_burst" validate:"gte=0"`

	// QueueCapacity caps the batches kept by MemoryQueue and FileQueue.
	QueueCapacity int `koanf:"queue_capacity" validate:"gt=0"`

	// Token is a static freshness token. Ignored when a TokenProvider is set on the client.
	Token string `koanf:"token"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gte=0"`
	ReadTimeout      time.Duration `koanf:"read_timeout" validate:"gte=0"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StorageKey:       DefaultStorageKey,
		EventsPath:       DefaultEventsPath,
		PollInterval:     time.Second,
		RequestTimeout:   30 * time.Second,
		PostRate:         1,
		PostBurst:        3,
		QueueCapacity:    50,
		HandshakeTimeout: 10 * time.Second,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return WrapError(ErrorInvalidConfig, "config validation failed", err)
	}
	return nil
}
