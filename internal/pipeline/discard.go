package pipeline

// DiscardReason says why an event never reached the queue or the wire.
type DiscardReason string

const (
	// ReasonBeforeSend counts events dropped (or panicked away) by the hook.
	ReasonBeforeSend DiscardReason = "before_send"
	// ReasonFilter counts events rejected by the CEL filter.
	ReasonFilter DiscardReason = "filter"
	// ReasonOverflow counts events dropped because they broke the byte cap
	// even after a forced flush.
	ReasonOverflow DiscardReason = "queue_overflow"
	// ReasonEncode counts events whose payload failed to serialize.
	ReasonEncode DiscardReason = "encode_error"
	// ReasonDisabled counts events whose collector category is switched off.
	ReasonDisabled DiscardReason = "collector_disabled"
)

func (p *Pipeline) discard(reason DiscardReason) {
	p.mu.Lock()
	p.discards[reason]++
	p.mu.Unlock()
}

func (p *Pipeline) discardLocked(reason DiscardReason) {
	p.discards[reason]++
}

// Discarded returns how many events were dropped for the given reason.
func (p *Pipeline) Discarded(reason DiscardReason) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discards[reason]
}
