package segment

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func part(data string, independent bool) Part {
	return Part{Duration: time.Second, Independent: independent, Data: []byte(data)}
}

func TestSegmentAppendGrowsContiguously(t *testing.T) {
	s := New(0, []byte("init"), false, time.Time{})
	require.NoError(t, s.Append(part("abcd", true)))
	require.NoError(t, s.Append(part("efgh", false)))

	assert.Equal(t, 2, s.Parts())
	assert.Equal(t, int64(8), s.Size())
	assert.False(t, s.Final())
	assert.Equal(t, []byte("abcdefgh"), s.Data())
}

func TestSegmentSealRejectsFurtherAppends(t *testing.T) {
	s := New(3, nil, false, time.Time{})
	require.NoError(t, s.Append(part("abcd", true)))
	require.NoError(t, s.Seal(2*time.Second))

	assert.True(t, s.Final())
	assert.Equal(t, 2*time.Second, s.Duration())
	assert.ErrorIs(t, s.Append(part("efgh", false)), ErrSealed)
	assert.ErrorIs(t, s.Seal(time.Second), ErrSealed)
}

func TestSegmentSealFromParts(t *testing.T) {
	s := New(0, nil, false, time.Time{})
	require.NoError(t, s.Append(part("ab", true)))
	require.NoError(t, s.Append(part("cd", false)))
	s.SealFromParts()

	assert.True(t, s.Final())
	assert.Equal(t, 2*time.Second, s.Duration())
}

func TestSegmentReadRange(t *testing.T) {
	s := New(0, nil, false, time.Time{})
	require.NoError(t, s.Append(part("abcd", true)))
	require.NoError(t, s.Append(part("efgh", false)))

	data, avail, final := s.ReadRange(2, 6)
	assert.Equal(t, []byte("cdef"), data)
	assert.Equal(t, int64(8), avail)
	assert.False(t, final)

	// negative end reads to the end of available data
	data, _, _ = s.ReadRange(5, -1)
	assert.Equal(t, []byte("fgh"), data)

	// start past the available data yields nothing
	data, avail, _ = s.ReadRange(8, -1)
	assert.Nil(t, data)
	assert.Equal(t, int64(8), avail)

	// end clamped to available data
	data, _, _ = s.ReadRange(6, 100)
	assert.Equal(t, []byte("gh"), data)
}

func TestSegmentFormatSealed(t *testing.T) {
	at := time.Date(2023, 9, 1, 12, 0, 0, 0, time.UTC)
	s := New(7, nil, false, at)
	require.NoError(t, s.Append(part("abcd", true)))
	require.NoError(t, s.Seal(6*time.Second))

	var b bytes.Buffer
	s.Format(&b)
	assert.Equal(t,
		"#EXT-X-PROGRAM-DATE-TIME:2023-09-01T12:00:00.000Z\n"+
			"#EXTINF:6.000,\n"+
			"./segment/7.m4s\n",
		b.String())
}

func TestSegmentFormatLiveParts(t *testing.T) {
	s := New(2, nil, true, time.Time{})
	require.NoError(t, s.Append(part("abcd", true)))
	require.NoError(t, s.Append(part("ef", false)))

	var b bytes.Buffer
	s.Format(&b)
	assert.Equal(t,
		"#EXT-X-DISCONTINUITY\n"+
			"#EXT-X-PART:DURATION=1.000,URI=\"./segment/2.m4s\",BYTERANGE=\"4@0\",INDEPENDENT=YES\n"+
			"#EXT-X-PART:DURATION=1.000,URI=\"./segment/2.m4s\",BYTERANGE=\"2@4\"\n",
		b.String())
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(2)
	for seq := MSN(0); seq < 3; seq++ {
		s := New(seq, nil, false, time.Time{})
		require.NoError(t, s.Seal(time.Second))
		evicted, err := w.Append(s)
		require.NoError(t, err)
		if seq < 2 {
			assert.Empty(t, evicted)
		} else {
			require.Len(t, evicted, 1)
			assert.Equal(t, MSN(0), evicted[0].Sequence())
		}
	}

	assert.Equal(t, MSN(1), w.First())
	assert.Equal(t, MSN(2), w.Last())
	assert.Nil(t, w.Get(0))
	assert.NotNil(t, w.Get(1))
	assert.Equal(t, MSN(2), w.Current().Sequence())
}

func TestWindowRejectsOutOfOrderSequence(t *testing.T) {
	w := NewWindow(3)
	_, err := w.Append(New(0, nil, false, time.Time{}))
	require.NoError(t, err)
	_, err = w.Append(New(2, nil, false, time.Time{}))
	assert.Error(t, err)
}

func TestWindowCountsEvictedDiscontinuities(t *testing.T) {
	w := NewWindow(1)
	_, err := w.Append(New(0, nil, true, time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, 0, w.DiscontinuitySequence())
	_, err = w.Append(New(1, nil, false, time.Time{}))
	require.NoError(t, err)
	assert.Equal(t, 1, w.DiscontinuitySequence())
}

func TestEmptyWindow(t *testing.T) {
	w := NewWindow(3)
	assert.Nil(t, w.Current())
	assert.Nil(t, w.Get(0))
	assert.Equal(t, MSN(-1), w.First())
	assert.Equal(t, MSN(-1), w.Last())
	assert.Equal(t, 0, w.Len())
}
