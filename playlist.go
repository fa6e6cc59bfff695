package llhls

import (
	"bytes"
	"fmt"
	"math"

	"github.com/cleoag/llhls/internal/segment"
)

// renderPlaylist builds the media playlist for the given window snapshot.
// Sealed segments get one segment entry each; the live segment contributes
// its part entries followed by exactly one preload hint at the next part's
// byte offset. Target durations come from the settings.
func renderPlaylist(settings StreamSettings, segs []*segment.Segment, dcnSeq int) []byte {
	var b bytes.Buffer
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:6\n")
	b.WriteString("#EXT-X-INDEPENDENT-SEGMENTS\n")
	b.WriteString("#EXT-X-MAP:URI=\"init.mp4\"\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", int(math.Round(settings.SegmentDuration.Seconds())))
	first := segment.MSN(0)
	if len(segs) > 0 {
		first = segs[0].Sequence()
	}
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", first)
	fmt.Fprintf(&b, "#EXT-X-DISCONTINUITY-SEQUENCE:%d\n", dcnSeq)
	fmt.Fprintf(&b, "#EXT-X-PART-INF:PART-TARGET=%.3f\n", settings.PartTargetDuration.Seconds())
	fmt.Fprintf(&b, "#EXT-X-SERVER-CONTROL:CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=%.3f\n", settings.partHoldBack())
	for _, seg := range segs {
		seg.Format(&b)
	}
	if n := len(segs); n > 0 {
		cur := segs[n-1]
		_, size, final := cur.Edge()
		if final {
			// the newest segment is sealed, so the next part will open the
			// segment after it
			fmt.Fprintf(&b, "#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"./segment/%d.m4s\",BYTERANGE-START=0\n", cur.Sequence()+1)
		} else {
			fmt.Fprintf(&b, "#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"%s\",BYTERANGE-START=%d\n", cur.URI(), size)
		}
	}
	return b.Bytes()
}
