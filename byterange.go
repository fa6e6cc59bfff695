package llhls

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cleoag/llhls/internal/segment"
)

// Clients pre-issuing hinted requests use an enormous last-byte position to
// mean "until end of data"; anything at or above this is treated as open.
const openEndSentinel = int64(1)<<53 - 1

// parseRange parses a single ascending "bytes=start-end" range. The returned
// end is -1 for an open or sentinel-capped range. Malformed or suffix ranges
// are ignored by the caller, per RFC 7233.
func parseRange(h string) (start, end int64, ok bool) {
	h = strings.TrimSpace(h)
	spec, found := strings.CutPrefix(h, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}
	lo, hi, found := strings.Cut(spec, "-")
	if !found || lo == "" {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(lo, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}
	if hi == "" {
		return start, -1, true
	}
	end, err = strconv.ParseInt(hi, 10, 64)
	if err != nil || end < start {
		return 0, 0, false
	}
	if end >= openEndSentinel {
		end = -1
	}
	return start, end, true
}

// serveSegment resolves a byte range against a possibly still-growing
// segment, suspending until enough bytes exist or the segment seals.
func (p *Publisher) serveSegment(rw http.ResponseWriter, req *http.Request, seq segment.MSN) {
	if p.Metrics != nil {
		p.Metrics.RangeRequests.Inc()
	}
	st := p.loadState()
	if !st.live {
		http.NotFound(rw, req)
		return
	}
	s := st.get(seq)
	if s == nil {
		if len(st.segments) > 0 && seq < st.first {
			httpError(rw, fmt.Errorf("%w: sequence %d", ErrStale, seq))
			return
		}
		// the request may have raced segment creation; give it exactly one
		// production cycle to appear
		if !p.waitOnce(req.Context()) {
			http.NotFound(rw, req)
			return
		}
		st = p.loadState()
		if !st.live {
			http.NotFound(rw, req)
			return
		}
		if s = st.get(seq); s == nil {
			http.NotFound(rw, req)
			return
		}
	}

	start, end := int64(0), int64(-1)
	hasRange := false
	if h := req.Header.Get("Range"); h != "" {
		start, end, hasRange = parseRange(h)
	}

	if !hasRange {
		// whole segment: block until sealed, then return everything
		if !s.Final() {
			if _, ok := p.waitForState(req.Context(), func(streamState) bool {
				return s.Final()
			}); !ok {
				http.NotFound(rw, req)
				return
			}
		}
		data := s.Data()
		rw.Header().Set("Content-Type", segmentContentType)
		rw.Header().Set("Content-Length", strconv.Itoa(len(data)))
		rw.Write(data)
		return
	}

	// suspend until at least one byte past start exists or the segment seals
	if _, avail, final := s.ReadRange(0, 0); !final && avail <= start {
		if p.Metrics != nil {
			p.Metrics.BlockedRequests.Inc()
		}
		if _, ok := p.waitForState(req.Context(), func(streamState) bool {
			_, avail, final := s.ReadRange(0, 0)
			return final || avail > start
		}); !ok {
			http.NotFound(rw, req)
			return
		}
	}

	endExcl := int64(-1)
	if end >= 0 {
		endExcl = end + 1
	}
	data, avail, final := s.ReadRange(start, endExcl)
	if start >= avail {
		// sealed short of the requested start
		httpError(rw, fmt.Errorf("%w: start %d beyond %d", ErrRangeNotSatisfiable, start, avail))
		return
	}
	total := "*"
	if final {
		total = strconv.FormatInt(avail, 10)
	}
	rw.Header().Set("Content-Type", segmentContentType)
	rw.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%s", start, start+int64(len(data))-1, total))
	rw.Header().Set("Content-Length", strconv.Itoa(len(data)))
	rw.WriteHeader(http.StatusPartialContent)
	rw.Write(data)
}
