package identity

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/id"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// NowMs returns current time in milliseconds since Unix epoch. Swappable in
// tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Session is the persisted visitor session record.
type Session struct {
	ID             string `json:"id"`
	Sampled        bool   `json:"sampled"`
	LastActivityMs int64  `json:"last"`
}

// Manager loads, creates, and renews the device id and session against a KV
// store. Safe for concurrent use.
type Manager struct {
	kv     KV
	gen    *id.Generator
	logger logpkg.Logger

	// draw is the Bernoulli source for the sampling decision. Swappable in
	// tests.
	draw func() float64

	mu      sync.Mutex
	current *Session
}

// NewManager returns a Manager over the given store.
func NewManager(kv KV, logger logpkg.Logger) *Manager {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Manager{
		kv:     kv,
		gen:    id.NewGenerator(),
		logger: logger.With(logpkg.Component("identity")),
		draw:   rand.Float64,
	}
}

// LoadOrCreate returns the persisted session if its last activity is within
// ttl, refreshing its activity timestamp; otherwise it creates a new session
// with a fresh sampling draw against sampleRate. Storage and parse faults are
// treated as "no session found".
func (m *Manager) LoadOrCreate(sampleRate float64, ttl time.Duration) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := NowMs()
	if s, ok := m.readSession(); ok && now-s.LastActivityMs < ttl.Milliseconds() {
		s.LastActivityMs = now
		m.current = &s
		m.persist(s)
		return s
	}

	s := Session{
		ID:             m.gen.Next().String(),
		Sampled:        m.draw() < sampleRate,
		LastActivityMs: now,
	}
	m.current = &s
	m.persist(s)
	m.logger.Debug("session created",
		logpkg.Str("session", s.ID),
		logpkg.Bool("sampled", s.Sampled),
	)
	return s
}

// RefreshActivity bumps the session's last-activity timestamp without
// touching its id or sampling decision. No-op when no session exists.
func (m *Manager) RefreshActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return
	}
	m.current.LastActivityMs = NowMs()
	m.persist(*m.current)
}

// Current returns the in-memory session, if one has been loaded.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

func (m *Manager) readSession() (Session, bool) {
	b, err := m.kv.Get(keySession)
	if err != nil || len(b) == 0 {
		return Session{}, false
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil || s.ID == "" {
		return Session{}, false
	}
	return s, true
}

func (m *Manager) persist(s Session) {
	b, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := m.kv.Set(keySession, b); err != nil {
		m.logger.Debug("session not persisted", logpkg.Err(err))
	}
}
