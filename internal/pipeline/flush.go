package pipeline

import (
	"context"
	"time"

	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/transport"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// Flush drains the queue and ships the batch on the keep-alive transport.
// A no-op when the queue is empty.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	p.flushLocked(false)
	p.mu.Unlock()
}

// flushLocked drains the entire queue into one payload. The queue and its
// byte counter are reset before any network activity, so events enqueued
// concurrently with an in-flight send start a fresh queue and a failing send
// can never re-queue the batch. Caller holds p.mu.
func (p *Pipeline) flushLocked(beaconMode bool) {
	events := p.q.Drain()
	if len(events) == 0 {
		return
	}
	payload := transport.Assemble(p.cfg, p.session.ID, p.deviceID, events)

	if beaconMode {
		// Teardown path: one synchronous best-effort attempt. On failure the
		// batch is lost; falling back to the other transport would risk
		// double delivery.
		if err := p.beacon.Send(context.Background(), payload); err != nil {
			p.logger.Debug("beacon send failed, batch lost",
				logpkg.Int("events", len(events)), logpkg.Err(err))
		}
		return
	}

	sender := p.sender
	logger := p.logger
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := sender.Send(ctx, payload); err != nil {
			logger.Debug("send failed, batch lost",
				logpkg.Int("events", len(events)), logpkg.Err(err))
		}
	}()
}

// runFlushLoop drives the periodic flush until Shutdown.
func (p *Pipeline) runFlushLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			p.Flush()
		case <-p.done:
			return
		}
	}
}
