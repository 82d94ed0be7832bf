package transport

import (
	"time"

	cfgpkg "github.com/Watchlog-monitoring/watchlog-rum-go/internal/config"
	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
)

// SDK identity stamped on every payload.
const (
	SDKName    = "watchlog-rum-go"
	SDKVersion = "1.2.0"
)

// NowMs returns current time in milliseconds since Unix epoch. Swappable in
// tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Payload is the JSON envelope POSTed to the collector. The api key is
// duplicated into the body because beacon-mode delivery cannot carry custom
// headers.
type Payload struct {
	SDK         string         `json:"sdk"`
	Version     string         `json:"version"`
	SentAtMs    int64          `json:"sentAt"`
	APIKey      string         `json:"apiKey,omitempty"`
	SessionID   string         `json:"sessionId"`
	DeviceID    string         `json:"deviceId"`
	App         string         `json:"app,omitempty"`
	Environment string         `json:"environment,omitempty"`
	Release     string         `json:"release,omitempty"`
	Events      []*event.Event `json:"events"`
}

// Assemble builds the payload for one drained batch, preserving event order.
func Assemble(cfg cfgpkg.Config, sessionID, deviceID string, events []*event.Event) *Payload {
	return &Payload{
		SDK:         SDKName,
		Version:     SDKVersion,
		SentAtMs:    NowMs(),
		APIKey:      cfg.APIKey,
		SessionID:   sessionID,
		DeviceID:    deviceID,
		App:         cfg.App,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		Events:      events,
	}
}
