package llhls

import (
	"context"
	"time"
)

type subscriber chan struct{}

// waits are capped well past any realistic part cadence; the advance part
// limit is what bounds waiting in practice
const waitTimeout = 35 * time.Second

func (p *Publisher) subscribe() subscriber {
	ch := make(subscriber, 1)
	p.subsMu.Lock()
	if p.subs == nil {
		p.subs = make(map[subscriber]struct{})
	}
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()
	if p.Metrics != nil {
		p.Metrics.Waiters.Inc()
	}
	return ch
}

func (p *Publisher) unsubscribe(ch subscriber) {
	p.subsMu.Lock()
	delete(p.subs, ch)
	p.subsMu.Unlock()
	if p.Metrics != nil {
		p.Metrics.Waiters.Dec()
	}
}

// notify wakes every registered waiter after a mutation
func (p *Publisher) notify() {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	for sub := range p.subs {
		// non-blocking send
		select {
		case sub <- struct{}{}:
		default:
		}
	}
}

// subscriberCount reports how many waiters are currently registered
func (p *Publisher) subscriberCount() int {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()
	return len(p.subs)
}

// waitForState blocks until the published state satisfies the predicate.
// It returns false when the stream closes, the client disconnects, or the
// safety timeout lapses; the caller sends no data in that case beyond a
// not-found response where appropriate.
func (p *Publisher) waitForState(ctx context.Context, satisfied func(streamState) bool) (streamState, bool) {
	ctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()
	ch := p.subscribe()
	defer p.unsubscribe(ch)
	for {
		st := p.loadState()
		if !st.live {
			return st, false
		}
		if satisfied(st) {
			return st, true
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return streamState{}, false
		}
	}
}

// waitOnce parks for a single broadcast cycle. Used to give a request that
// arrives slightly ahead of segment creation exactly one grace cycle.
func (p *Publisher) waitOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()
	ch := p.subscribe()
	defer p.unsubscribe(ch)
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}
