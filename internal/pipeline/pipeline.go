package pipeline

import (
	"sync"
	"time"

	cfgpkg "github.com/Watchlog-monitoring/watchlog-rum-go/internal/config"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/identity"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/queue"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/runtime"
	pebblestore "github.com/Watchlog-monitoring/watchlog-rum-go/internal/storage/pebble"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/transport"
	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// NowMs returns current time in milliseconds since Unix epoch. Swappable in
// tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// BeforeSend transforms or drops an event before it is queued. Returning nil
// drops the event. The pipeline treats the hook as untrusted: a panic is
// contained and drops that event only.
type BeforeSend func(*event.Event) *event.Event

// Collector wires an external event source to the pipeline's dispatch
// function. It returns its own teardown, which the pipeline runs at
// shutdown. Collectors are only installed while the session is sampled.
type Collector func(dispatch func(*event.Event)) (teardown func(), err error)

// Options configures a Pipeline.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger

	// Runtime supplies the identity store. When nil the pipeline opens its
	// own from Config.DataDir and closes it on Shutdown.
	Runtime *runtime.Runtime

	// Sender/Beacon override the transports; tests use fakes here.
	Sender transport.Sender
	Beacon transport.Sender

	BeforeSend BeforeSend
	Collectors []Collector

	// Context seeds the ambient envelope context (initial URL, viewport,
	// locale).
	Context event.Context
}

// SessionInfo is the queryable identity snapshot.
type SessionInfo struct {
	SessionID string
	DeviceID  string
	Sampled   bool
}

// Pipeline is the process-wide telemetry pipeline instance.
type Pipeline struct {
	mu     sync.Mutex
	cfg    cfgpkg.Config
	logger logpkg.Logger

	rt         *runtime.Runtime
	ownRuntime bool

	session  identity.Session
	deviceID string

	q      *queue.Queue
	sender transport.Sender
	beacon transport.Sender

	hook   BeforeSend
	filter celFilter

	seq uint64
	ctx event.Context

	collectors []Collector
	teardowns  []func()

	done       chan struct{}
	started    bool
	closed     bool
	timerOn    bool
	viewFired  bool
	viewCancel chan struct{}

	discards map[DiscardReason]uint64
}

// New builds a pipeline from options. Nothing runs until Start.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	logger = logger.With(logpkg.Component("pipeline"))

	cfg := opts.Config
	p := &Pipeline{
		cfg:        cfg,
		logger:     logger,
		rt:         opts.Runtime,
		q:          queue.New(cfg.BatchMax, cfg.MaxQueueBytes),
		sender:     opts.Sender,
		beacon:     opts.Beacon,
		hook:       opts.BeforeSend,
		collectors: opts.Collectors,
		ctx:        opts.Context.Clone(),
		done:       make(chan struct{}),
		discards:   map[DiscardReason]uint64{},
	}
	if p.sender == nil {
		p.sender = transport.NewHTTPSender(cfg.Endpoint, cfg.APIKey, logger)
	}
	if p.beacon == nil {
		p.beacon = transport.NewBeaconSender(cfg.Endpoint, logger)
	}
	return p
}

// Start loads identity, decides whether this session is observed, and when
// sampled starts the flush timer, installs collectors, and enters the
// initial-view race. Calling Start on a started pipeline is a no-op.
func (p *Pipeline) Start() {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true

	if p.rt == nil {
		p.rt = runtime.Open(runtime.Options{
			DataDir: p.cfg.DataDir,
			Fsync:   pebblestore.FsyncModeAlways,
			Logger:  p.logger,
		})
		p.ownRuntime = true
	}
	ident := p.rt.Identity()
	p.deviceID = ident.DeviceID()
	p.session = ident.LoadOrCreate(p.cfg.SampleRate, p.cfg.SessionTTL())

	if !p.session.Sampled {
		// Excluded visitor: no filter, no timer, no collectors, no initial
		// view. Dispatch stays a no-op and resource use rounds to zero.
		p.mu.Unlock()
		p.logger.Debug("session not sampled, pipeline inert",
			logpkg.Str("session", p.session.ID))
		return
	}

	p.filter = newCELFilter(p.cfg.FilterExpr, p.logger)
	p.timerOn = true
	go p.runFlushLoop(p.cfg.FlushInterval())
	p.mu.Unlock()

	p.installCollectors()
	p.startInitialView()

	p.logger.Debug("pipeline started",
		logpkg.Str("session", p.session.ID),
		logpkg.Str("device", p.deviceID))
}

// Activity records a qualifying user-activity signal, extending the session.
func (p *Pipeline) Activity() {
	p.mu.Lock()
	rt, active := p.rt, p.started && !p.closed
	p.mu.Unlock()
	if !active || rt == nil {
		return
	}
	rt.Identity().RefreshActivity()
}

// Hide handles the page-hide/teardown signal: refresh session activity, then
// flush whatever is queued in beacon mode.
func (p *Pipeline) Hide() {
	p.mu.Lock()
	rt, active := p.rt, p.started && !p.closed
	p.mu.Unlock()
	if !active {
		return
	}
	if rt != nil {
		rt.Identity().RefreshActivity()
	}
	p.mu.Lock()
	p.flushLocked(true)
	p.mu.Unlock()
}

// Shutdown cancels the flush timer and the initial-view race, tears down
// collectors, ships remaining events in beacon mode, and releases the
// identity store. Idempotent.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.timerOn {
		close(p.done)
		p.timerOn = false
	}
	if p.viewCancel != nil {
		close(p.viewCancel)
		p.viewCancel = nil
	}
	teardowns := p.teardowns
	p.teardowns = nil
	p.mu.Unlock()

	// Each teardown is fault-isolated; one panicking collector must not
	// block the rest.
	for _, td := range teardowns {
		p.safely(td)
	}

	p.mu.Lock()
	p.flushLocked(true)
	rt, own := p.rt, p.ownRuntime
	p.rt = nil
	p.mu.Unlock()

	if own && rt != nil {
		if err := rt.Close(); err != nil {
			p.logger.Debug("identity store close", logpkg.Err(err))
		}
	}
}

// Session returns the current identity snapshot, or false when the pipeline
// has not started.
func (p *Pipeline) Session() (SessionInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.closed {
		return SessionInfo{}, false
	}
	return SessionInfo{
		SessionID: p.session.ID,
		DeviceID:  p.deviceID,
		Sampled:   p.session.Sampled,
	}, true
}

// Identify sets the current user on the ambient context. It mutates context
// only; no event is enqueued.
func (p *Pipeline) Identify(userID string, traits map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := &event.User{ID: userID}
	if traits != nil {
		u.Traits = make(map[string]interface{}, len(traits))
		for k, v := range traits {
			u.Traits[k] = v
		}
	}
	p.ctx.User = u
}

// SetContext merges extra attributes into the ambient context.
func (p *Pipeline) SetContext(extra map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx.Extra == nil {
		p.ctx.Extra = map[string]interface{}{}
	}
	for k, v := range extra {
		p.ctx.Extra[k] = v
	}
}

// SetRouteManifest binds the route manifest on the live configuration.
func (p *Pipeline) SetRouteManifest(routes []string) {
	p.mu.Lock()
	p.cfg.RouteManifest = append([]string(nil), routes...)
	p.mu.Unlock()
}

// SetPathNormalizer binds the path normalizer on the live configuration.
func (p *Pipeline) SetPathNormalizer(fn func(string) string) {
	p.mu.Lock()
	p.cfg.PathNormalizer = fn
	p.mu.Unlock()
}

// safely runs fn with panic containment.
func (p *Pipeline) safely(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("panic contained", logpkg.Any("panic", r))
		}
	}()
	fn()
}

func (p *Pipeline) installCollectors() {
	dispatch := func(ev *event.Event) { p.Dispatch(ev) }
	for _, c := range p.collectors {
		if c == nil {
			continue
		}
		td, err := c(dispatch)
		if err != nil {
			// Missing optional integration: feature off, no error surfaced.
			p.logger.Debug("collector disabled", logpkg.Err(err))
			continue
		}
		if td != nil {
			p.mu.Lock()
			closed := p.closed
			if !closed {
				p.teardowns = append(p.teardowns, td)
			}
			p.mu.Unlock()
			if closed {
				// Shutdown raced collector setup; unwind immediately.
				p.safely(td)
			}
		}
	}
}
