package agent

import (
	"sync"
	"time"

	cfgpkg "github.com/Watchlog-monitoring/watchlog-rum-go/internal/config"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/pipeline"
	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// Collector wires an external event source to the agent. Setup receives the
// dispatch function and returns a teardown run at shutdown. Collectors are
// only installed while the session is sampled.
type Collector func(dispatch func(*event.Event)) (teardown func(), err error)

// BeforeSend transforms or drops an event before it is queued; nil drops.
type BeforeSend func(*event.Event) *event.Event

// CollectorFlags enables or disables whole event categories. Events in a
// disabled category are dropped at dispatch.
type CollectorFlags struct {
	Errors    bool
	Network   bool
	Resources bool
	LongTasks bool
	WebVitals bool
}

// SessionInfo is the queryable identity snapshot.
type SessionInfo struct {
	SessionID string
	DeviceID  string
	Sampled   bool
}

// Options configures Start. Zero values fall back to defaults; SampleRate
// uses a pointer so an explicit 0.0 (observe nothing) is distinguishable
// from unset.
type Options struct {
	Endpoint    string
	APIKey      string
	App         string
	Environment string
	Release     string

	SampleRate    *float64
	BatchMax      int
	FlushInterval time.Duration
	MaxQueueBytes int
	SessionTTL    time.Duration

	InitialViewPoll    time.Duration
	InitialViewTimeout time.Duration

	// FilterExpr is an optional CEL drop filter, e.g.
	// `!(type == "custom" && name.startsWith("debug_"))`.
	FilterExpr string

	// DataDir overrides the identity store location.
	DataDir string

	RouteManifest  []string
	PathNormalizer func(string) string

	// Collect overrides the per-category enable flags; nil keeps every
	// category on.
	Collect *CollectorFlags

	BeforeSend BeforeSend
	Collectors []Collector

	// Context seeds the ambient envelope context (initial URL, viewport,
	// locale).
	Context event.Context

	Logger logpkg.Logger
}

// Rate is a convenience for Options.SampleRate.
func Rate(v float64) *float64 { return &v }

// Agent is the public handle to the running pipeline.
type Agent struct {
	p *pipeline.Pipeline
}

var (
	mu      sync.Mutex
	current *Agent

	// Late bindings delivered before Start are cached and consumed by the
	// next startup.
	pendingRoutes     []string
	pendingNormalizer func(string) string
)

// Start initializes the process-wide agent and returns its handle. When an
// agent is already running, Start returns it unchanged.
func Start(opts Options) *Agent {
	mu.Lock()
	defer mu.Unlock()
	if current != nil {
		return current
	}

	cfg := resolve(opts)
	if pendingRoutes != nil {
		cfg.RouteManifest = pendingRoutes
		pendingRoutes = nil
	}
	if pendingNormalizer != nil {
		cfg.PathNormalizer = pendingNormalizer
		pendingNormalizer = nil
	}

	collectors := make([]pipeline.Collector, 0, len(opts.Collectors))
	for _, c := range opts.Collectors {
		collectors = append(collectors, pipeline.Collector(c))
	}
	var hook pipeline.BeforeSend
	if opts.BeforeSend != nil {
		hook = pipeline.BeforeSend(opts.BeforeSend)
	}

	p := pipeline.New(pipeline.Options{
		Config:     cfg,
		Logger:     opts.Logger,
		BeforeSend: hook,
		Collectors: collectors,
		Context:    opts.Context,
	})
	p.Start()
	current = &Agent{p: p}
	return current
}

// Current returns the running agent, if any.
func Current() (*Agent, bool) {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return nil, false
	}
	return current, true
}

// Shutdown stops the running agent and clears the process-wide handle.
// Idempotent.
func Shutdown() {
	mu.Lock()
	a := current
	current = nil
	mu.Unlock()
	if a != nil {
		a.p.Shutdown()
	}
}

// SetRouteManifest binds the route manifest, before or after Start.
func SetRouteManifest(routes []string) {
	mu.Lock()
	a := current
	if a == nil {
		pendingRoutes = append([]string(nil), routes...)
	}
	mu.Unlock()
	if a != nil {
		a.p.SetRouteManifest(routes)
	}
}

// SetPathNormalizer binds the path normalizer, before or after Start.
func SetPathNormalizer(fn func(string) string) {
	mu.Lock()
	a := current
	if a == nil {
		pendingNormalizer = fn
	}
	mu.Unlock()
	if a != nil {
		a.p.SetPathNormalizer(fn)
	}
}

// TrackPageView records a page view. navType tags how the view was reached
// ("push", "pop", "initial"); empty means unspecified.
func (a *Agent) TrackPageView(path, navType string) { a.p.TrackPageView(path, navType) }

// TrackEvent records a named custom event with arbitrary data.
func (a *Agent) TrackEvent(name string, data map[string]interface{}) {
	a.p.TrackEvent(name, data)
}

// TrackError records an error event from an error, string, or other value.
func (a *Agent) TrackError(v interface{}, source string) { a.p.TrackError(v, source) }

// Identify sets the current user on the ambient context without enqueueing.
func (a *Agent) Identify(userID string, traits map[string]interface{}) {
	a.p.Identify(userID, traits)
}

// SetContext merges extra attributes into the ambient context.
func (a *Agent) SetContext(extra map[string]interface{}) { a.p.SetContext(extra) }

// Flush forces an immediate flush of queued events.
func (a *Agent) Flush() { a.p.Flush() }

// Activity records a user-activity signal, extending the session.
func (a *Agent) Activity() { a.p.Activity() }

// Hide handles the page-hide/teardown signal: activity refresh plus a
// beacon-mode flush.
func (a *Agent) Hide() { a.p.Hide() }

// Session returns the identity snapshot, or false when not started.
func (a *Agent) Session() (SessionInfo, bool) {
	info, ok := a.p.Session()
	if !ok {
		return SessionInfo{}, false
	}
	return SessionInfo(info), true
}

func resolve(opts Options) cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.Endpoint = opts.Endpoint
	cfg.APIKey = opts.APIKey
	cfg.App = opts.App
	cfg.Environment = opts.Environment
	cfg.Release = opts.Release
	if opts.SampleRate != nil {
		cfg.SampleRate = *opts.SampleRate
	}
	if opts.BatchMax > 0 {
		cfg.BatchMax = opts.BatchMax
	}
	if opts.FlushInterval > 0 {
		cfg.FlushIntervalMs = int(opts.FlushInterval.Milliseconds())
	}
	if opts.MaxQueueBytes > 0 {
		cfg.MaxQueueBytes = opts.MaxQueueBytes
	}
	if opts.SessionTTL > 0 {
		cfg.SessionTTLMs = int(opts.SessionTTL.Milliseconds())
	}
	if opts.InitialViewPoll > 0 {
		cfg.InitialViewPollMs = int(opts.InitialViewPoll.Milliseconds())
	}
	if opts.InitialViewTimeout > 0 {
		cfg.InitialViewTimeoutMs = int(opts.InitialViewTimeout.Milliseconds())
	}
	cfg.FilterExpr = opts.FilterExpr
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.RouteManifest != nil {
		cfg.RouteManifest = append([]string(nil), opts.RouteManifest...)
	}
	cfg.PathNormalizer = opts.PathNormalizer
	if opts.Collect != nil {
		cfg.Collectors = cfgpkg.Collectors{
			Errors:    opts.Collect.Errors,
			Network:   opts.Collect.Network,
			Resources: opts.Collect.Resources,
			LongTasks: opts.Collect.LongTasks,
			WebVitals: opts.Collect.WebVitals,
		}
	}
	return cfg
}
