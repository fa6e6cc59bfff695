package llhls

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cleoag/llhls/internal/segment"
)

// parseBlock extracts the _HLS_msn/_HLS_part blocking directives. A part
// directive without a sequence directive is a protocol violation.
func parseBlock(q url.Values) (want segment.PartMSN, err error) {
	want = segment.PartMSN{MSN: -1, Part: -1}
	msn := q.Get("_HLS_msn")
	part := q.Get("_HLS_part")
	if part != "" && msn == "" {
		return want, fmt.Errorf("%w: _HLS_part requires _HLS_msn", ErrProtocolViolation)
	}
	if msn == "" {
		// not blocking
		return want, nil
	}
	vv, perr := strconv.ParseInt(msn, 10, 64)
	if perr != nil || vv < 0 {
		return want, fmt.Errorf("%w: invalid _HLS_msn", ErrProtocolViolation)
	}
	want.MSN = segment.MSN(vv)
	if part == "" {
		// block for whole segment
		return want, nil
	}
	vv, perr = strconv.ParseInt(part, 10, 64)
	if perr != nil || vv < 0 {
		return want, fmt.Errorf("%w: invalid _HLS_part", ErrProtocolViolation)
	}
	want.Part = int(vv)
	return want, nil
}

// playlistReady reports whether the snapshot can serve the wanted playlist.
// Readiness is judged against the snapshot alone, never the live segments,
// so the served playlist always contains what the predicate saw. A sequence
// behind the live edge is always ready; at the edge the request waits for
// its part to be published, and a part index at or past a sealed edge's
// count resolves once the window advances, aliasing it onto the next
// segment.
func playlistReady(st streamState, want segment.PartMSN) bool {
	if want.MSN < 0 {
		return true
	}
	if want.Part < 0 {
		return st.last >= want.MSN
	}
	if want.MSN != st.last {
		return want.MSN < st.last
	}
	return want.Part < st.edgeParts
}

// servePlaylist validates the blocking directives, decides immediate-reject,
// immediate-serve or suspend-until-ready, and writes the rendered playlist
// exactly once.
func (p *Publisher) servePlaylist(rw http.ResponseWriter, req *http.Request) {
	if p.Metrics != nil {
		p.Metrics.PlaylistRequests.Inc()
	}
	st := p.loadState()
	if !st.live {
		http.NotFound(rw, req)
		return
	}
	want, err := parseBlock(req.URL.Query())
	if err != nil {
		p.reject("protocol")
		httpError(rw, err)
		return
	}
	if want.MSN >= 0 {
		if want.MSN > st.last+1 {
			p.reject("future_msn")
			httpError(rw, fmt.Errorf("%w: _HLS_msn %d", ErrOutOfRange, want.MSN))
			return
		}
		if len(st.segments) > 0 && want.MSN < st.first {
			p.reject("expired")
			httpError(rw, fmt.Errorf("%w: _HLS_msn %d", ErrStale, want.MSN))
			return
		}
		if want.Part >= 0 && want.MSN == st.last {
			if want.Part > st.edgeParts-1+p.Settings.AdvancePartLimit {
				p.reject("advance_part_limit")
				httpError(rw, fmt.Errorf("%w: _HLS_part %d", ErrOutOfRange, want.Part))
				return
			}
		}
		if !playlistReady(st, want) {
			if p.Metrics != nil {
				p.Metrics.BlockedRequests.Inc()
			}
			started := time.Now()
			var ok bool
			st, ok = p.waitForState(req.Context(), func(st streamState) bool {
				return playlistReady(st, want)
			})
			if p.Metrics != nil {
				p.Metrics.WaitDuration.Observe(time.Since(started).Seconds())
			}
			if !ok {
				http.NotFound(rw, req)
				return
			}
		}
	}
	if !st.live {
		http.NotFound(rw, req)
		return
	}
	rw.Header().Set("Content-Type", playlistContentType)
	rw.Header().Set("Cache-Control", "max-age=0, no-cache, no-store")
	rw.Write(st.playlist)
}

func (p *Publisher) reject(reason string) {
	if p.Metrics != nil {
		p.Metrics.RejectedRequests.WithLabelValues(reason).Inc()
	}
}
