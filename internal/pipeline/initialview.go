package pipeline

import (
	"time"

	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
)

// startInitialView enters the race between route-manifest readiness and the
// fallback timeout. Whichever side wins fires the initial page view exactly
// once; the loser is cancelled.
func (p *Pipeline) startInitialView() {
	if p.routesReady() {
		p.fireInitialView()
		return
	}

	cancel := make(chan struct{})
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.viewCancel = cancel
	poll := p.cfg.InitialViewPoll()
	timeout := p.cfg.InitialViewTimeout()
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		for {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				if p.routesReady() {
					p.fireInitialView()
					return
				}
			case <-deadline.C:
				// Manifest never arrived; fire with the literal path.
				p.fireInitialView()
				return
			}
		}
	}()
}

// routesReady reports whether route resolution is possible: either a
// normalizer or a manifest has been bound (possibly late).
func (p *Pipeline) routesReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.PathNormalizer != nil || len(p.cfg.RouteManifest) > 0
}

// fireInitialView emits the initial page view if it has not fired yet. Both
// race arms and any re-entry (e.g. a fast host re-render calling Start
// paths again) funnel through the viewFired flag.
func (p *Pipeline) fireInitialView() {
	p.mu.Lock()
	if p.viewFired || p.closed {
		p.mu.Unlock()
		return
	}
	p.viewFired = true
	if p.viewCancel != nil {
		close(p.viewCancel)
		p.viewCancel = nil
	}
	path := p.ctx.Page
	if path == "" {
		path = p.ctx.URL
	}
	if path == "" {
		path = "/"
	}
	p.mu.Unlock()

	p.TrackPageView(path, "initial")
}

// TrackPageView dispatches a page-view event for the given path, resolved
// through the path normalizer when one is bound. navType tags how the view
// was reached ("initial", "push", "pop", ...); empty means unspecified.
func (p *Pipeline) TrackPageView(path, navType string) {
	ev := &event.Event{
		Type:    event.TypePageView,
		Context: event.Context{Page: p.normalizePath(path), URL: path},
	}
	if navType != "" {
		ev.Data = map[string]interface{}{"navigationType": navType}
	}
	p.Dispatch(ev)
}

// normalizePath maps a literal path to its route template. Absent or
// misbehaving normalizers fall back to the literal path, never an error.
func (p *Pipeline) normalizePath(path string) string {
	p.mu.Lock()
	fn := p.cfg.PathNormalizer
	p.mu.Unlock()
	if fn == nil {
		return path
	}
	out := path
	p.safely(func() {
		if v := fn(path); v != "" {
			out = v
		}
	})
	return out
}
