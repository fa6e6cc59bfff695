package segment

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSealed is returned when the producer appends a part to a segment whose
// duration has already been fixed. This is a programming error on the
// producer side and is never surfaced to HTTP clients.
var ErrSealed = errors.New("segment already sealed")

// Segment holds a single HLS segment which grows in parts until it is sealed.
//
// The producer goroutine is the only mutator. Readers access the live fields
// through the snapshotting methods, which take the segment lock.
type Segment struct {
	// fixed at creation
	seq         MSN
	init        []byte
	dcn         bool
	programTime string
	// modified while the segment is live
	mu    sync.RWMutex
	parts []Part
	size  int64
	// set when the segment is sealed
	final bool
	dur   time.Duration
}

// New creates a live segment. init holds the codec initialization section and
// is set exactly once, here. A zero programTime omits the
// EXT-X-PROGRAM-DATE-TIME line.
func New(seq MSN, init []byte, dcn bool, programTime time.Time) *Segment {
	s := &Segment{
		seq:  seq,
		init: init,
		dcn:  dcn,
	}
	if !programTime.IsZero() {
		s.programTime = programTime.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	return s
}

// Sequence returns the media sequence number of the segment
func (s *Segment) Sequence() MSN { return s.seq }

// Init returns the codec initialization section
func (s *Segment) Init() []byte { return s.init }

// Discontinuous returns whether the segment immediately follows a change in
// stream parameters
func (s *Segment) Discontinuous() bool { return s.dcn }

// URI returns the playlist-relative location of the segment data
func (s *Segment) URI() string {
	return fmt.Sprintf("./segment/%d.m4s", s.seq)
}

// Append adds a part at the next contiguous byte offset. Fails with ErrSealed
// once the segment duration has been fixed.
func (s *Segment) Append(p Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final {
		return ErrSealed
	}
	s.parts = append(s.parts, p)
	s.size += p.Size()
	return nil
}

// Seal fixes the segment duration and marks it complete. No parts may be
// appended afterwards, and the duration can be set only once.
func (s *Segment) Seal(dur time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.final {
		return ErrSealed
	}
	s.final = true
	s.dur = dur
	return nil
}

// SealFromParts seals the segment using the sum of its part durations. Used
// when a new segment arrives while its predecessor is still open.
func (s *Segment) SealFromParts() {
	s.mu.Lock()
	s.final = true
	s.dur = 0
	for _, p := range s.parts {
		s.dur += p.Duration
	}
	s.mu.Unlock()
}

// Final returns whether the segment is sealed
func (s *Segment) Final() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.final
}

// Parts returns how many parts are currently in the segment
func (s *Segment) Parts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parts)
}

// Size returns the byte length of the data appended so far
func (s *Segment) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Duration returns the duration of the segment if it has been sealed
func (s *Segment) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dur
}

// Edge returns the live edge of the segment in one consistent read
func (s *Segment) Edge() (parts int, size int64, final bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parts), s.size, s.final
}

// Data returns a copy of all bytes appended so far
func (s *Segment) Data() []byte {
	data, _, _ := s.ReadRange(0, -1)
	return data
}

// ReadRange copies the available bytes in [start, end). A negative end reads
// to the end of the currently available data. The returned avail and final
// values are taken under the same lock as the data, so the three are mutually
// consistent even while the producer is appending.
func (s *Segment) ReadRange(start, end int64) (data []byte, avail int64, final bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	avail = s.size
	final = s.final
	if end < 0 || end > avail {
		end = avail
	}
	if start < 0 || start >= end {
		return nil, avail, final
	}
	data = make([]byte, 0, end-start)
	var off int64
	for _, p := range s.parts {
		plen := p.Size()
		if off+plen > start && off < end {
			lo := int64(0)
			if start > off {
				lo = start - off
			}
			hi := plen
			if end < off+plen {
				hi = end - off
			}
			data = append(data, p.Data[lo:hi]...)
		}
		off += plen
		if off >= end {
			break
		}
	}
	return data, avail, final
}

// Format writes the playlist lines for this segment. A sealed segment gets a
// single segment entry; a live segment gets one EXT-X-PART entry per part.
func (s *Segment) Format(b *bytes.Buffer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dcn {
		b.WriteString("#EXT-X-DISCONTINUITY\n")
	}
	if s.final {
		if s.programTime != "" {
			fmt.Fprintf(b, "#EXT-X-PROGRAM-DATE-TIME:%s\n", s.programTime)
		}
		fmt.Fprintf(b, "#EXTINF:%.3f,\n%s\n", s.dur.Seconds(), s.URI())
		return
	}
	var off int64
	for _, p := range s.parts {
		var independent string
		if p.Independent {
			independent = ",INDEPENDENT=YES"
		}
		fmt.Fprintf(b, "#EXT-X-PART:DURATION=%.3f,URI=\"%s\",BYTERANGE=\"%d@%d\"%s\n",
			p.Duration.Seconds(), s.URI(), p.Size(), off, independent)
		off += p.Size()
	}
}
