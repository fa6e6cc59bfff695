package llhls

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleoag/llhls/internal/segment"
)

func TestPlaylistRender(t *testing.T) {
	p := newPublisher()
	seg0 := segment.New(0, []byte("ftyp"), false, testStart)
	require.NoError(t, p.Put(seg0))
	require.NoError(t, p.AppendPart(0, newPart("aaaa", true)))
	require.NoError(t, p.Seal(0, 6*time.Second))
	require.NoError(t, p.Put(segment.New(1, []byte("ftyp"), false, testStart.Add(6*time.Second))))
	require.NoError(t, p.AppendPart(1, newPart("bbbb", true)))
	require.NoError(t, p.AppendPart(1, newPart("cc", false)))

	rec := doGET(p, "/playlist.m3u8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, playlistContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "max-age=0, no-cache, no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t,
		"#EXTM3U\n"+
			"#EXT-X-VERSION:6\n"+
			"#EXT-X-INDEPENDENT-SEGMENTS\n"+
			"#EXT-X-MAP:URI=\"init.mp4\"\n"+
			"#EXT-X-TARGETDURATION:6\n"+
			"#EXT-X-MEDIA-SEQUENCE:0\n"+
			"#EXT-X-DISCONTINUITY-SEQUENCE:0\n"+
			"#EXT-X-PART-INF:PART-TARGET=1.000\n"+
			"#EXT-X-SERVER-CONTROL:CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=2.100\n"+
			"#EXT-X-PROGRAM-DATE-TIME:2023-09-01T12:00:00.000Z\n"+
			"#EXTINF:6.000,\n"+
			"./segment/0.m4s\n"+
			"#EXT-X-PART:DURATION=1.000,URI=\"./segment/1.m4s\",BYTERANGE=\"4@0\",INDEPENDENT=YES\n"+
			"#EXT-X-PART:DURATION=1.000,URI=\"./segment/1.m4s\",BYTERANGE=\"2@4\"\n"+
			"#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"./segment/1.m4s\",BYTERANGE-START=6\n",
		rec.Body.String())
}

func TestPlaylistHintAfterSeal(t *testing.T) {
	p := newPublisher()
	require.NoError(t, p.Put(segment.New(0, nil, false, testStart)))
	require.NoError(t, p.AppendPart(0, newPart("aaaa", true)))
	require.NoError(t, p.Seal(0, 6*time.Second))

	rec := doGET(p, "/playlist.m3u8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	// the next part will open the segment after the sealed edge
	assert.Contains(t, rec.Body.String(),
		"#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"./segment/1.m4s\",BYTERANGE-START=0\n")
	assert.NotContains(t, rec.Body.String(), "#EXT-X-PART:")
}

func TestPlaylistDiscontinuitySequenceAfterEviction(t *testing.T) {
	p := newPublisher()
	p.WindowSize = 2
	require.NoError(t, p.Put(segment.New(0, nil, true, testStart)))
	require.NoError(t, p.Seal(0, 6*time.Second))
	require.NoError(t, p.Put(segment.New(1, nil, false, testStart)))
	require.NoError(t, p.Seal(1, 6*time.Second))
	require.NoError(t, p.Put(segment.New(2, nil, false, testStart)))

	rec := doGET(p, "/playlist.m3u8", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#EXT-X-MEDIA-SEQUENCE:1\n")
	assert.Contains(t, rec.Body.String(), "#EXT-X-DISCONTINUITY-SEQUENCE:1\n")
}
