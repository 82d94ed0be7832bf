package event

import "encoding/json"

// Type tags an event with its payload kind. The set is closed; collectors
// must not invent new types.
type Type string

const (
	TypePageView Type = "page_view"
	TypeCustom   Type = "custom"
	TypeError    Type = "error"
	TypeWebVital Type = "web_vital"
	TypeResource Type = "resource"
	TypeNetwork  Type = "network"
	TypeLongTask Type = "long_task"
)

// Viewport captures the host view dimensions at event time.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// User identifies the current user as set via Identify.
type User struct {
	ID     string                 `json:"id,omitempty"`
	Traits map[string]interface{} `json:"traits,omitempty"`
}

// Context is the structural snapshot stamped on every event.
type Context struct {
	Page     string                 `json:"page,omitempty"`
	URL      string                 `json:"url,omitempty"`
	Viewport *Viewport              `json:"viewport,omitempty"`
	User     *User                  `json:"user,omitempty"`
	Locale   string                 `json:"locale,omitempty"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

// Clone returns a snapshot copy of the context. Maps are copied one level
// deep, which is enough to isolate queued events from later Identify or
// SetContext calls.
func (c Context) Clone() Context {
	out := c
	if c.Viewport != nil {
		vp := *c.Viewport
		out.Viewport = &vp
	}
	if c.User != nil {
		u := User{ID: c.User.ID}
		if c.User.Traits != nil {
			u.Traits = make(map[string]interface{}, len(c.User.Traits))
			for k, v := range c.User.Traits {
				u.Traits[k] = v
			}
		}
		out.User = &u
	}
	if c.Extra != nil {
		out.Extra = make(map[string]interface{}, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Event is a single telemetry record. The envelope fields (SessionID,
// DeviceID, Seq, TimestampMs, Context) are stamped by the pipeline's dispatch
// path; collectors and callers fill Type, Name, and Data only.
type Event struct {
	Type        Type                   `json:"type"`
	Name        string                 `json:"name,omitempty"`
	TimestampMs int64                  `json:"ts"`
	SessionID   string                 `json:"sessionId"`
	DeviceID    string                 `json:"deviceId"`
	Seq         uint64                 `json:"seq"`
	Context     Context                `json:"context"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Encode serializes the event once. The pipeline caches the result for byte
// accounting and payload assembly; events must not be mutated afterwards.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
