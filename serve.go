package llhls

import (
	"bytes"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cleoag/llhls/internal/segment"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/iso.segment"
	initContentType     = "video/mp4"
)

// ServeHTTP serves the media playlist, the init section, and segment byte
// ranges. Only the final path elements are inspected, so the publisher can
// be mounted under any prefix.
func (p *Publisher) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	st := p.loadState()
	if !st.live {
		http.NotFound(rw, req)
		return
	}
	dir, file := path.Split(path.Clean("/" + req.URL.Path))
	switch {
	case file == "playlist.m3u8":
		p.servePlaylist(rw, req)
	case file == "init.mp4":
		p.serveInit(rw, req, st)
	case path.Base(dir) == "segment" && strings.HasSuffix(file, ".m4s"):
		v, err := strconv.ParseInt(strings.TrimSuffix(file, ".m4s"), 10, 64)
		if err != nil || v < 0 {
			http.NotFound(rw, req)
			return
		}
		p.serveSegment(rw, req, segment.MSN(v))
	default:
		http.NotFound(rw, req)
	}
}

// serveInit returns the codec initialization section of the newest segment
func (p *Publisher) serveInit(rw http.ResponseWriter, req *http.Request, st streamState) {
	if len(st.segments) == 0 {
		http.NotFound(rw, req)
		return
	}
	init := st.segments[len(st.segments)-1].Init()
	if len(init) == 0 {
		http.NotFound(rw, req)
		return
	}
	rw.Header().Set("Content-Type", initContentType)
	rw.Header().Set("Cache-Control", "max-age=600, public")
	http.ServeContent(rw, req, "", time.Time{}, bytes.NewReader(init))
}
