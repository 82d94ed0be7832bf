package config

import (
	"encoding/json"
	"os"
	"time"
)

// Collectors holds per-collector enable flags. Events in a disabled category
// are dropped at dispatch; page views and custom events have no flag.
type Collectors struct {
	Errors    bool `json:"errors"`
	Network   bool `json:"network"`
	Resources bool `json:"resources"`
	LongTasks bool `json:"longTasks"`
	WebVitals bool `json:"webVitals"`
}

// Config is the fully-resolved agent configuration.
type Config struct {
	// Endpoint is the collector URL events are POSTed to.
	Endpoint string `json:"endpoint"`
	// APIKey authenticates payloads. It is sent as the X-Watchlog-Key header
	// and duplicated in the payload body for beacon-mode delivery.
	APIKey string `json:"apiKey"`

	App         string `json:"app"`
	Environment string `json:"environment"`
	Release     string `json:"release"`

	// SampleRate is the per-session Bernoulli rate in [0,1]. The draw happens
	// once at session creation and never again for that session.
	SampleRate float64 `json:"sampleRate"`

	// BatchMax triggers a flush when the queue reaches this many events.
	BatchMax int `json:"batchMax"`
	// FlushIntervalMs is the periodic flush timer interval.
	FlushIntervalMs int `json:"flushIntervalMs"`
	// MaxQueueBytes is the hard ceiling on buffered serialized bytes.
	MaxQueueBytes int `json:"maxQueueBytes"`
	// SessionTTLMs is the inactivity window after which a session expires.
	SessionTTLMs int `json:"sessionTtlMs"`

	// InitialViewPollMs is the poll interval while waiting for the route
	// manifest; InitialViewTimeoutMs fires the initial page view regardless.
	InitialViewPollMs    int `json:"initialViewPollMs"`
	InitialViewTimeoutMs int `json:"initialViewTimeoutMs"`

	// FilterExpr is an optional CEL expression evaluated per event; events it
	// rejects are dropped before queueing. A compile error disables the
	// filter silently.
	FilterExpr string `json:"filterExpr"`

	Collectors Collectors `json:"collectors"`

	// DataDir holds the Pebble identity store. Empty means DefaultDataDir.
	DataDir string `json:"dataDir"`

	// RouteManifest lists route templates used to resolve page paths. May be
	// bound after startup.
	RouteManifest []string `json:"routeManifest"`
	// PathNormalizer maps a literal path to its route template. May be bound
	// after startup; nil falls back to the literal path.
	PathNormalizer func(string) string `json:"-"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		SampleRate:           1.0,
		BatchMax:             20,
		FlushIntervalMs:      10_000,
		MaxQueueBytes:        256 << 10,
		SessionTTLMs:         int((30 * time.Minute).Milliseconds()),
		InitialViewPollMs:    50,
		InitialViewTimeoutMs: 3_000,
		Collectors: Collectors{
			Errors:    true,
			Network:   true,
			Resources: true,
			LongTasks: true,
			WebVitals: true,
		},
	}
}

// Load reads configuration from a JSON file merged over defaults. If path is
// empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FlushInterval returns FlushIntervalMs as a duration.
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// SessionTTL returns SessionTTLMs as a duration.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMs) * time.Millisecond
}

// InitialViewPoll returns InitialViewPollMs as a duration.
func (c Config) InitialViewPoll() time.Duration {
	return time.Duration(c.InitialViewPollMs) * time.Millisecond
}

// InitialViewTimeout returns InitialViewTimeoutMs as a duration.
func (c Config) InitialViewTimeout() time.Duration {
	return time.Duration(c.InitialViewTimeoutMs) * time.Millisecond
}
