package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	cfgpkg "github.com/Watchlog-monitoring/watchlog-rum-go/internal/config"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/runtime"
	pebblestore "github.com/Watchlog-monitoring/watchlog-rum-go/internal/storage/pebble"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/transport"
	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
)

// fakeSender records payloads instead of shipping them.
type fakeSender struct {
	mu       sync.Mutex
	payloads []*transport.Payload
	fail     bool
}

func (s *fakeSender) Send(_ context.Context, p *transport.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
	if s.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (s *fakeSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func (s *fakeSender) last() *transport.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		return nil
	}
	return s.payloads[len(s.payloads)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

type testOpt func(*Options)

func newTestPipeline(t *testing.T, opts ...testOpt) (*Pipeline, *fakeSender, *fakeSender) {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Endpoint = "http://collector.invalid/v1/rum"
	cfg.APIKey = "test-key"
	cfg.BatchMax = 100
	cfg.FlushIntervalMs = 60_000 // keep the timer out of the way
	cfg.InitialViewTimeoutMs = 60_000
	cfg.InitialViewPollMs = 5

	rt := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	t.Cleanup(func() { _ = rt.Close() })

	sender := &fakeSender{}
	beacon := &fakeSender{}
	o := Options{Config: cfg, Runtime: rt, Sender: sender, Beacon: beacon}
	for _, fn := range opts {
		fn(&o)
	}
	p := New(o)
	t.Cleanup(p.Shutdown)
	return p, sender, beacon
}

func drainInitialView(t *testing.T, p *Pipeline, sender *fakeSender) {
	t.Helper()
	// Route manifest bound up front: initial page view fires synchronously
	// inside Start. Flush it away so tests observe only their own events.
	p.Flush()
	waitFor(t, func() bool { return sender.calls() >= 1 })
}

func startWithView(o *Options) { o.Config.RouteManifest = []string{"/"} }

func TestSequenceNumbersGaplessInOrder(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView)
	p.Start()
	drainInitialView(t, p, sender)

	for i := 0; i < 5; i++ {
		p.TrackEvent("e", map[string]interface{}{"i": i})
	}
	p.Flush()
	waitFor(t, func() bool { return sender.calls() >= 2 })

	events := sender.last().Events
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq != events[i-1].Seq+1 {
			t.Fatalf("sequence gap: %d then %d", events[i-1].Seq, events[i].Seq)
		}
	}
}

func TestBatchThresholdFlushesExactlyOnce(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView, func(o *Options) {
		o.Config.BatchMax = 2
	})
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackEvent("a", nil)
	if sender.calls() != 1 {
		t.Fatalf("no flush expected below threshold")
	}
	p.TrackEvent("b", nil)
	waitFor(t, func() bool { return sender.calls() == 2 })

	got := sender.last().Events
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Fatalf("expected [a b], got %v", got)
	}
	// queue empty immediately after: another flush is a no-op
	p.Flush()
	time.Sleep(20 * time.Millisecond)
	if sender.calls() != 2 {
		t.Fatalf("flush on empty queue must not send")
	}
}

func TestFlushEmptyQueueIsNoop(t *testing.T) {
	p, sender, _ := newTestPipeline(t)
	p.Start()
	p.Flush()
	time.Sleep(20 * time.Millisecond)
	if sender.calls() != 0 {
		t.Fatalf("no payload expected")
	}
}

func TestByteCapForcesFlushThenDropsOversized(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView, func(o *Options) {
		o.Config.MaxQueueBytes = 2000
		o.Config.BatchMax = 1000
	})
	p.Start()
	drainInitialView(t, p, sender)

	big := strings.Repeat("x", 700)
	p.TrackEvent("one", map[string]interface{}{"pad": big})
	p.TrackEvent("two", map[string]interface{}{"pad": big})
	// third event would exceed the cap -> forced flush first, then it queues
	p.TrackEvent("three", map[string]interface{}{"pad": big})
	waitFor(t, func() bool { return sender.calls() >= 2 })

	forced := sender.last().Events
	if len(forced) != 2 || forced[0].Name != "one" || forced[1].Name != "two" {
		t.Fatalf("forced flush should carry the first two events")
	}

	// an event bigger than the whole cap is dropped, not queued
	p.TrackEvent("huge", map[string]interface{}{"pad": strings.Repeat("y", 2500)})
	if p.Discarded(ReasonOverflow) != 1 {
		t.Fatalf("oversized event must be dropped")
	}
}

func TestBeforeSendDropAndMutate(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView, func(o *Options) {
		o.BeforeSend = func(ev *event.Event) *event.Event {
			if ev.Type == event.TypeCustom && strings.HasPrefix(ev.Name, "debug_") {
				return nil
			}
			if ev.Type == event.TypeCustom {
				ev.Name = "renamed_" + ev.Name
			}
			return ev
		}
	})
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackEvent("debug_x", nil)
	p.Flush()
	time.Sleep(20 * time.Millisecond)
	if sender.calls() != 1 {
		t.Fatalf("dropped event must not produce a payload")
	}
	if p.Discarded(ReasonBeforeSend) != 1 {
		t.Fatalf("drop not counted")
	}

	p.TrackEvent("keep", nil)
	p.Flush()
	waitFor(t, func() bool { return sender.calls() == 2 })
	if sender.last().Events[0].Name != "renamed_keep" {
		t.Fatalf("hook mutation lost")
	}
}

func TestBeforeSendPanicIsolated(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView, func(o *Options) {
		o.BeforeSend = func(ev *event.Event) *event.Event {
			if ev.Name == "boom" {
				panic("hook bug")
			}
			return ev
		}
	})
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackEvent("boom", nil) // must not panic the host
	p.TrackEvent("fine", nil)
	p.Flush()
	waitFor(t, func() bool { return sender.calls() == 2 })
	events := sender.last().Events
	if len(events) != 1 || events[0].Name != "fine" {
		t.Fatalf("panicking hook must drop only its own event")
	}
}

func TestCELFilterDrops(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView, func(o *Options) {
		o.Config.FilterExpr = `!(type == "custom" && name.startsWith("debug_"))`
	})
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackEvent("debug_noise", nil)
	p.TrackEvent("signal", nil)
	p.Flush()
	waitFor(t, func() bool { return sender.calls() == 2 })
	events := sender.last().Events
	if len(events) != 1 || events[0].Name != "signal" {
		t.Fatalf("filter should drop debug_noise only, got %v", events)
	}
	if p.Discarded(ReasonFilter) != 1 {
		t.Fatalf("filter drop not counted")
	}
}

func TestCELFilterCompileErrorDisablesFilter(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView, func(o *Options) {
		o.Config.FilterExpr = `this is not CEL (`
	})
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackEvent("anything", nil)
	p.Flush()
	waitFor(t, func() bool { return sender.calls() == 2 })
	if len(sender.last().Events) != 1 {
		t.Fatalf("broken filter must disable itself, not drop events")
	}
}

func TestHideFlushesViaBeacon(t *testing.T) {
	p, sender, beacon := newTestPipeline(t, startWithView)
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackEvent("a", nil)
	p.TrackEvent("b", nil)
	p.TrackEvent("c", nil)
	p.Hide()

	if beacon.calls() != 1 {
		t.Fatalf("expected exactly one beacon call, got %d", beacon.calls())
	}
	if got := beacon.last().Events; len(got) != 3 {
		t.Fatalf("beacon must carry the 3 queued events, got %d", len(got))
	}
	// queue is empty regardless of beacon outcome
	p.Flush()
	time.Sleep(20 * time.Millisecond)
	if sender.calls() != 1 {
		t.Fatalf("queue must be empty after hide")
	}
}

func TestBeaconFailureDoesNotFallBack(t *testing.T) {
	p, sender, beacon := newTestPipeline(t, startWithView)
	beacon.fail = true
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackEvent("lost", nil)
	p.Hide()

	if beacon.calls() != 1 {
		t.Fatalf("one beacon attempt expected")
	}
	p.Flush()
	time.Sleep(20 * time.Millisecond)
	if sender.calls() != 1 {
		t.Fatalf("failed beacon batch must not reach the keep-alive transport")
	}
}

func TestUnsampledSessionIsInert(t *testing.T) {
	installed := false
	p, sender, beacon := newTestPipeline(t, func(o *Options) {
		o.Config.SampleRate = 0.0
		o.Collectors = []Collector{
			func(dispatch func(*event.Event)) (func(), error) {
				installed = true
				return nil, nil
			},
		}
	})
	p.Start()

	if installed {
		t.Fatalf("collectors must not be installed for unsampled sessions")
	}
	p.TrackEvent("ignored", nil)
	p.TrackPageView("/home", "push")
	p.Flush()
	p.Hide()
	time.Sleep(20 * time.Millisecond)
	if sender.calls() != 0 || beacon.calls() != 0 {
		t.Fatalf("unsampled pipeline must never send")
	}
	if info, ok := p.Session(); !ok || info.Sampled {
		t.Fatalf("session should exist but be unsampled")
	}
}

func TestCollectorsFeedDispatchAndTearDown(t *testing.T) {
	tornDown := false
	p, sender, _ := newTestPipeline(t, startWithView, func(o *Options) {
		o.Collectors = []Collector{
			func(dispatch func(*event.Event)) (func(), error) {
				dispatch(&event.Event{Type: event.TypeNetwork, Data: map[string]interface{}{"status": 200}})
				return func() { tornDown = true }, nil
			},
			func(dispatch func(*event.Event)) (func(), error) {
				return func() { panic("teardown bug") }, nil
			},
		}
	})
	p.Start()
	p.Flush()
	waitFor(t, func() bool { return sender.calls() >= 1 })

	p.Shutdown()
	if !tornDown {
		t.Fatalf("panicking sibling must not block other teardowns")
	}
}

func TestShutdownShipsRemainingEventsViaBeacon(t *testing.T) {
	p, sender, beacon := newTestPipeline(t, startWithView)
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackEvent("tail", nil)
	p.Shutdown()
	if beacon.calls() != 1 {
		t.Fatalf("shutdown must beacon remaining events")
	}
	if beacon.last().Events[0].Name != "tail" {
		t.Fatalf("wrong event shipped at shutdown")
	}
	// idempotent
	p.Shutdown()
	if beacon.calls() != 1 {
		t.Fatalf("second shutdown must be a no-op")
	}
}

func TestStartIdempotent(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView)
	p.Start()
	info1, ok := p.Session()
	if !ok {
		t.Fatalf("expected session")
	}
	p.Start()
	info2, _ := p.Session()
	if info1.SessionID != info2.SessionID {
		t.Fatalf("second start must not redraw the session")
	}
	drainInitialView(t, p, sender)
	p.Flush()
	time.Sleep(20 * time.Millisecond)
	if sender.calls() != 1 {
		t.Fatalf("second start must not duplicate the initial view")
	}
}

func TestPayloadCarriesIdentityAndKey(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView)
	p.Start()
	p.Flush()
	waitFor(t, func() bool { return sender.calls() >= 1 })

	info, _ := p.Session()
	payload := sender.last()
	if payload.SessionID != info.SessionID || payload.DeviceID != info.DeviceID {
		t.Fatalf("payload identity mismatch")
	}
	if payload.APIKey != "test-key" {
		t.Fatalf("api key must ride in the body")
	}
	if payload.SDK != transport.SDKName {
		t.Fatalf("sdk identity missing")
	}
}

func TestContextSnapshotIsolation(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView)
	p.Start()
	drainInitialView(t, p, sender)

	p.Identify("u1", map[string]interface{}{"plan": "free"})
	p.TrackEvent("before", nil)
	p.Identify("u2", nil) // must not rewrite the queued event
	p.Flush()
	waitFor(t, func() bool { return sender.calls() == 2 })

	ev := sender.last().Events[0]
	if ev.Context.User == nil || ev.Context.User.ID != "u1" {
		t.Fatalf("queued event context must be a snapshot, got %+v", ev.Context.User)
	}
}

func TestIdentifyDoesNotEnqueue(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView)
	p.Start()
	drainInitialView(t, p, sender)

	p.Identify("u1", nil)
	p.SetContext(map[string]interface{}{"tenant": "acme"})
	p.Flush()
	time.Sleep(20 * time.Millisecond)
	if sender.calls() != 1 {
		t.Fatalf("identify/setContext must not produce events")
	}
}

func TestTrackErrorShapes(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView)
	p.Start()
	drainInitialView(t, p, sender)

	p.TrackError(context.DeadlineExceeded, "fetch")
	p.TrackError("plain failure", "")
	p.TrackError(nil, "ignored")
	p.Flush()
	waitFor(t, func() bool { return sender.calls() == 2 })

	events := sender.last().Events
	if len(events) != 2 {
		t.Fatalf("nil error must be ignored; got %d events", len(events))
	}
	if events[0].Data["message"] != context.DeadlineExceeded.Error() || events[0].Data["source"] != "fetch" {
		t.Fatalf("error event shape: %v", events[0].Data)
	}
	if events[1].Data["message"] != "plain failure" {
		t.Fatalf("string error shape: %v", events[1].Data)
	}
}

func TestDisabledCategoryDropsAtDispatch(t *testing.T) {
	p, sender, _ := newTestPipeline(t, startWithView, func(o *Options) {
		o.Config.Collectors.Network = false
	})
	p.Start()
	drainInitialView(t, p, sender)

	p.Dispatch(&event.Event{Type: event.TypeNetwork, Data: map[string]interface{}{"status": 500}})
	p.TrackEvent("still_on", nil)
	p.Flush()
	waitFor(t, func() bool { return sender.calls() == 2 })

	events := sender.last().Events
	if len(events) != 1 || events[0].Name != "still_on" {
		t.Fatalf("disabled category must drop only its own events, got %v", events)
	}
	if p.Discarded(ReasonDisabled) != 1 {
		t.Fatalf("disabled drop not counted")
	}
}
