package llhls

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cleoag/llhls/internal/segment"
)

const defaultWindowSize = 3

// Publisher owns the rolling window of segments for one live LL-HLS stream
// and serves playlists and segment byte ranges over HTTP, blocking requests
// for data that is still being produced.
//
// The producer methods (Put, AppendPart, Seal, Close) must be called from a
// single goroutine. Any number of concurrent readers may call ServeHTTP;
// readers work from lock-free snapshots published after every mutation.
type Publisher struct {
	// Settings is the immutable stream configuration. Required.
	Settings StreamSettings
	// WindowSize is how many segments are retained for serving. Defaults to 3.
	WindowSize int
	// Log is an optional logger. The zero value logs nothing.
	Log zerolog.Logger
	// Metrics is an optional set of instrumentation counters.
	Metrics *Metrics

	mu     sync.Mutex
	window *segment.Window
	closed bool

	state atomic.Value

	subsMu sync.Mutex
	subs   map[subscriber]struct{}
}

// lock-free snapshot of stream state for readers
type streamState struct {
	live     bool
	playlist []byte
	segments []*segment.Segment
	first    segment.MSN
	last     segment.MSN
	// part count of the newest segment at publish time
	edgeParts int
}

// get returns the retained segment with the given sequence, or nil
func (st streamState) get(seq segment.MSN) *segment.Segment {
	if len(st.segments) == 0 {
		return nil
	}
	idx := int(seq - st.first)
	if idx < 0 || idx >= len(st.segments) {
		return nil
	}
	return st.segments[idx]
}

// loadState returns the latest published snapshot. Before the first Put the
// stream is live but empty.
func (p *Publisher) loadState() streamState {
	if st, ok := p.state.Load().(streamState); ok {
		return st
	}
	return streamState{live: true, first: -1, last: -1}
}

// Put appends seg as the new current segment, sealing an unsealed
// predecessor from its part durations and evicting the oldest segment once
// the window is full. All waiters are woken against the post-mutation state.
func (p *Publisher) Put(seg *segment.Segment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStreamClosed
	}
	if p.window == nil {
		size := p.WindowSize
		if size == 0 {
			size = defaultWindowSize
		}
		p.window = segment.NewWindow(size)
	}
	if cur := p.window.Current(); cur != nil && !cur.Final() {
		cur.SealFromParts()
		p.Log.Debug().Int64("sequence", int64(cur.Sequence())).Msg("sealed open segment on rollover")
	}
	evicted, err := p.window.Append(seg)
	if err != nil {
		return err
	}
	for _, old := range evicted {
		p.Log.Debug().Int64("sequence", int64(old.Sequence())).Msg("evicted segment")
		if p.Metrics != nil {
			p.Metrics.SegmentsEvicted.Inc()
		}
	}
	if p.Metrics != nil {
		p.Metrics.SegmentsPut.Inc()
	}
	p.Log.Debug().Int64("sequence", int64(seg.Sequence())).Msg("segment put")
	p.publishLocked()
	return nil
}

// AppendPart appends part to the live segment with the given sequence at the
// next contiguous byte offset. Appending to a sealed segment fails with
// segment.ErrSealed.
func (p *Publisher) AppendPart(seq segment.MSN, part segment.Part) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStreamClosed
	}
	if p.window == nil {
		return fmt.Errorf("append part: %w: sequence %d", ErrNotFound, seq)
	}
	s := p.window.Get(seq)
	if s == nil {
		return fmt.Errorf("append part: %w: sequence %d", ErrNotFound, seq)
	}
	if err := s.Append(part); err != nil {
		return fmt.Errorf("append part to segment %d: %w", seq, err)
	}
	if p.Metrics != nil {
		p.Metrics.PartsAppended.Inc()
	}
	p.publishLocked()
	return nil
}

// Seal fixes the duration of the segment with the given sequence and marks
// it complete.
func (p *Publisher) Seal(seq segment.MSN, dur time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrStreamClosed
	}
	if p.window == nil {
		return fmt.Errorf("seal: %w: sequence %d", ErrNotFound, seq)
	}
	s := p.window.Get(seq)
	if s == nil {
		return fmt.Errorf("seal: %w: sequence %d", ErrNotFound, seq)
	}
	if err := s.Seal(dur); err != nil {
		return fmt.Errorf("seal segment %d: %w", seq, err)
	}
	p.Log.Debug().Int64("sequence", int64(seq)).Dur("duration", dur).Msg("segment sealed")
	p.publishLocked()
	return nil
}

// Segment returns the retained segment with the given sequence.
func (p *Publisher) Segment(seq segment.MSN) (*segment.Segment, error) {
	st := p.loadState()
	if !st.live {
		return nil, ErrStreamClosed
	}
	if s := st.get(seq); s != nil {
		return s, nil
	}
	if len(st.segments) > 0 && seq < st.first {
		return nil, fmt.Errorf("%w: sequence %d", ErrStale, seq)
	}
	return nil, fmt.Errorf("%w: sequence %d", ErrNotFound, seq)
}

// Close stops the stream. Pending waiters resolve with a not-found response
// and every later request is rejected the same way.
func (p *Publisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.window = nil
	p.mu.Unlock()
	p.state.Store(streamState{})
	p.notify()
}

// publish a snapshot of the window and rendered playlist, then wake waiters.
// Waiters registered before this mutation all observe the new state, so no
// request can see a stale signal paired with a pre-mutation result.
func (p *Publisher) publishLocked() {
	segs := p.window.Slice()
	st := streamState{
		live:     true,
		segments: segs,
		first:    p.window.First(),
		last:     p.window.Last(),
	}
	if cur := p.window.Current(); cur != nil {
		st.edgeParts = cur.Parts()
	}
	st.playlist = renderPlaylist(p.Settings, segs, p.window.DiscontinuitySequence())
	p.state.Store(st)
	p.notify()
}
