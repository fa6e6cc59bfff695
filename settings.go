package llhls

import (
	"math"
	"time"
)

// StreamSettings is the immutable per-stream configuration derived from the
// nominal segment and part durations. It is computed once at stream start;
// the playlist target duration fields come from here and are never
// recomputed per render.
type StreamSettings struct {
	// SegmentDuration is the nominal duration of a whole segment.
	SegmentDuration time.Duration
	// PartTargetDuration is the advertised PART-TARGET: the nominal part
	// duration rounded up to a whole millisecond, so every produced part
	// fits under it.
	PartTargetDuration time.Duration
	// AdvancePartLimit is how many parts past the live edge a client may
	// request before being rejected outright.
	AdvancePartLimit int
}

// NewStreamSettings derives the stream settings from the nominal durations.
// The advance part limit is three divided by the part target duration when
// the part target duration is under one second, rounded up, and three
// otherwise.
func NewStreamSettings(segmentDur, partDur time.Duration) StreamSettings {
	pt := partDur.Truncate(time.Millisecond)
	if pt < partDur {
		pt += time.Millisecond
	}
	limit := 3
	if pt > 0 && pt < time.Second {
		limit = int(math.Ceil(3 / pt.Seconds()))
	}
	return StreamSettings{
		SegmentDuration:    segmentDur,
		PartTargetDuration: pt,
		AdvancePartLimit:   limit,
	}
}

// partHoldBack is the advertised PART-HOLD-BACK in seconds
func (s StreamSettings) partHoldBack() float64 {
	return 2.1 * s.PartTargetDuration.Seconds()
}
