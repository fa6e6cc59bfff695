package segment

import "fmt"

// Window is the rolling sequence of segments retained for serving. Sequence
// numbers within the window are strictly increasing and contiguous, and at
// most one segment is unsealed: the newest one.
//
// Window is not safe for concurrent use; the producer path owns it and
// readers work from published snapshots.
type Window struct {
	size    int
	segs    []*Segment
	baseDCN int
}

// NewWindow creates a window retaining at most size segments
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size}
}

// Append adds a segment as the new current segment and returns any segments
// evicted to keep the window within its configured size.
func (w *Window) Append(s *Segment) ([]*Segment, error) {
	if n := len(w.segs); n > 0 {
		if want := w.segs[n-1].Sequence() + 1; s.Sequence() != want {
			return nil, fmt.Errorf("segment sequence %d out of order, want %d", s.Sequence(), want)
		}
	}
	w.segs = append(w.segs, s)
	var evicted []*Segment
	if n := len(w.segs) - w.size; n > 0 {
		evicted = w.segs[:n]
		w.segs = w.segs[n:]
		for _, old := range evicted {
			if old.Discontinuous() {
				w.baseDCN++
			}
		}
	}
	return evicted, nil
}

// Current returns the newest segment, or nil if the window is empty
func (w *Window) Current() *Segment {
	if len(w.segs) == 0 {
		return nil
	}
	return w.segs[len(w.segs)-1]
}

// Get returns the segment with the given sequence if it is still retained
func (w *Window) Get(seq MSN) *Segment {
	if len(w.segs) == 0 {
		return nil
	}
	idx := int(seq - w.segs[0].Sequence())
	if idx < 0 || idx >= len(w.segs) {
		return nil
	}
	return w.segs[idx]
}

// First returns the oldest retained sequence, or -1 if the window is empty
func (w *Window) First() MSN {
	if len(w.segs) == 0 {
		return -1
	}
	return w.segs[0].Sequence()
}

// Last returns the newest sequence, or -1 if the window is empty
func (w *Window) Last() MSN {
	if len(w.segs) == 0 {
		return -1
	}
	return w.segs[len(w.segs)-1].Sequence()
}

// Len returns the number of retained segments
func (w *Window) Len() int { return len(w.segs) }

// Slice returns a copy of the retained segments, oldest first
func (w *Window) Slice() []*Segment {
	segs := make([]*Segment, len(w.segs))
	copy(segs, w.segs)
	return segs
}

// DiscontinuitySequence counts the discontinuities evicted from the window
func (w *Window) DiscontinuitySequence() int { return w.baseDCN }
