package pipeline

import (
	"fmt"

	cfgpkg "github.com/Watchlog-monitoring/watchlog-rum-go/internal/config"
	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// Dispatch is the single choke point every event passes through, whether it
// came from a public Track call or a collector. It stamps the envelope, runs
// the hook chain, and enqueues, honoring the byte cap and batch threshold.
func (p *Pipeline) Dispatch(ev *event.Event) {
	if ev == nil {
		return
	}

	p.mu.Lock()
	if !p.started || p.closed || !p.session.Sampled {
		p.mu.Unlock()
		return
	}
	if !typeEnabled(p.cfg.Collectors, ev.Type) {
		p.discardLocked(ReasonDisabled)
		p.mu.Unlock()
		return
	}
	// Envelope: ids, timestamp, and a context snapshot taken now, so later
	// Identify/SetContext calls cannot rewrite a queued event.
	ev.TimestampMs = NowMs()
	ev.SessionID = p.session.ID
	ev.DeviceID = p.deviceID
	ev.Context = p.mergedContextLocked(ev.Context)
	hook := p.hook
	filter := p.filter
	p.mu.Unlock()

	// The hook runs unlocked: it is caller code and may take its time or
	// call back into the pipeline.
	if hook != nil {
		out, err := runHook(hook, ev)
		if err != nil {
			p.discard(ReasonBeforeSend)
			p.logger.Warn("beforeSend panicked, event dropped", logpkg.Err(err))
			return
		}
		if out == nil {
			p.discard(ReasonBeforeSend)
			return
		}
		ev = out
	}

	if !filter.Eval(ev) {
		p.discard(ReasonFilter)
		return
	}

	p.enqueue(ev)
}

// mergedContextLocked overlays the event's own context fields onto a
// snapshot of the ambient context. Caller holds p.mu.
func (p *Pipeline) mergedContextLocked(own event.Context) event.Context {
	merged := p.ctx.Clone()
	if own.Page != "" {
		merged.Page = own.Page
	}
	if own.URL != "" {
		merged.URL = own.URL
	}
	if own.Viewport != nil {
		merged.Viewport = own.Viewport
	}
	if own.Locale != "" {
		merged.Locale = own.Locale
	}
	for k, v := range own.Extra {
		if merged.Extra == nil {
			merged.Extra = map[string]interface{}{}
		}
		merged.Extra[k] = v
	}
	return merged
}

// typeEnabled maps an event type to its collector enable flag. Page views
// and custom events have no flag and are always accepted.
func typeEnabled(c cfgpkg.Collectors, t event.Type) bool {
	switch t {
	case event.TypeError:
		return c.Errors
	case event.TypeNetwork:
		return c.Network
	case event.TypeResource:
		return c.Resources
	case event.TypeLongTask:
		return c.LongTasks
	case event.TypeWebVital:
		return c.WebVitals
	default:
		return true
	}
}

// runHook isolates a hook call; a panic becomes an error.
func runHook(hook BeforeSend, ev *event.Event) (out *event.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("hook panic: %v", r)
		}
	}()
	return hook(ev), nil
}

// enqueue serializes the event, enforces the byte cap (flush-then-recheck,
// drop-newest on persistent overflow), appends, and fires the batch-size
// threshold. The sequence number is committed only when the event is
// actually queued, keeping accepted sequences gapless.
func (p *Pipeline) enqueue(ev *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	ev.Seq = p.seq + 1
	b, err := ev.Encode()
	if err != nil {
		ev.Seq = 0
		p.discardLocked(ReasonEncode)
		return
	}
	size := len(b)

	if p.q.WouldExceed(size) {
		p.flushLocked(false)
		if p.q.WouldExceed(size) {
			// Still over after draining: the event alone breaks the cap.
			// Dropped rather than growing unbounded.
			ev.Seq = 0
			p.discardLocked(ReasonOverflow)
			p.logger.Warn("event exceeds queue byte cap, dropped",
				logpkg.Str("type", string(ev.Type)),
				logpkg.Int("bytes", size))
			return
		}
	}

	p.seq++
	p.q.Push(ev, size)

	if p.q.Full() {
		p.flushLocked(false)
	}
}
