package ingest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/format/ts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/cleoag/llhls"
	"github.com/cleoag/llhls/internal/ratedetect"
	"github.com/cleoag/llhls/internal/segment"
)

// Producer is the buffer mutation surface the adapter feeds. Satisfied by
// *llhls.Publisher.
type Producer interface {
	Put(*segment.Segment) error
	AppendPart(segment.MSN, segment.Part) error
	Seal(segment.MSN, time.Duration) error
}

// Adapter converts a demuxed packet stream into parts and segments. Packets
// accumulate until the part target duration elapses, then are muxed into one
// part; segments begin on video keyframes once the segment duration has
// elapsed. Adapter implements av.Muxer so it can terminate an
// avutil.CopyFile pipeline.
type Adapter struct {
	// Rate, when set, is updated with the detected frame rate of the
	// incoming video.
	Rate prometheus.Gauge

	dst      Producer
	settings llhls.StreamSettings
	log      zerolog.Logger

	buf  bytes.Buffer
	mux  *ts.Muxer
	hdr  []byte
	vidx int
	rate ratedetect.Detector

	pending   []av.Packet
	seq       segment.MSN
	started   bool
	nextDCN   bool
	segStart  time.Duration
	partStart time.Duration
	lastTime  time.Duration
}

// New creates an adapter feeding dst
func New(dst Producer, settings llhls.StreamSettings, log zerolog.Logger) *Adapter {
	return &Adapter{dst: dst, settings: settings, log: log, seq: -1}
}

// WriteHeader muxes the codec data once and keeps it as the initialization
// section for every segment.
func (a *Adapter) WriteHeader(streams []av.CodecData) error {
	a.mux = ts.NewMuxer(&a.buf)
	if err := a.mux.WriteHeader(streams); err != nil {
		return fmt.Errorf("mux header: %w", err)
	}
	for i, cd := range streams {
		if cd.Type().IsVideo() {
			a.vidx = i
		}
	}
	a.hdr = make([]byte, a.buf.Len())
	copy(a.hdr, a.buf.Bytes())
	a.buf.Reset()
	return nil
}

// WritePacket queues a packet, cutting parts and segments as their target
// durations elapse. Segments always begin on a video keyframe.
func (a *Adapter) WritePacket(pkt av.Packet) error {
	if int(pkt.Idx) == a.vidx {
		a.rate.Append(pkt.Time)
	}
	if int(pkt.Idx) == a.vidx && pkt.IsKeyFrame &&
		(!a.started || pkt.Time-a.segStart >= a.settings.SegmentDuration) {
		if err := a.cutPart(pkt.Time); err != nil {
			return err
		}
		if err := a.newSegment(pkt.Time); err != nil {
			return err
		}
	}
	if !a.started {
		// waiting for the first keyframe
		return nil
	}
	a.pending = append(a.pending, pkt)
	a.lastTime = pkt.Time
	if pkt.Time-a.partStart >= a.settings.PartTargetDuration {
		return a.cutPart(pkt.Time)
	}
	return nil
}

// WriteTrailer flushes the pending part and seals the open segment
func (a *Adapter) WriteTrailer() error {
	if !a.started {
		return nil
	}
	if err := a.cutPart(a.lastTime); err != nil {
		return err
	}
	if err := a.dst.Seal(a.seq, a.lastTime-a.segStart); err != nil {
		return fmt.Errorf("seal final segment: %w", err)
	}
	a.started = false
	return nil
}

// Discontinuity marks the next segment as following a change in stream
// parameters.
func (a *Adapter) Discontinuity() {
	a.nextDCN = true
}

// cutPart muxes the pending packets into one part and appends it
func (a *Adapter) cutPart(now time.Duration) error {
	if !a.started || len(a.pending) == 0 {
		return nil
	}
	a.buf.Reset()
	independent := false
	sawVideo := false
	for _, pkt := range a.pending {
		if int(pkt.Idx) == a.vidx && !sawVideo {
			independent = pkt.IsKeyFrame
			sawVideo = true
		}
		if err := a.mux.WritePacket(pkt); err != nil {
			return fmt.Errorf("mux part: %w", err)
		}
	}
	data := make([]byte, a.buf.Len())
	copy(data, a.buf.Bytes())
	part := segment.Part{
		Duration:    now - a.partStart,
		Independent: independent,
		Data:        data,
	}
	if err := a.dst.AppendPart(a.seq, part); err != nil {
		return fmt.Errorf("append part: %w", err)
	}
	a.pending = a.pending[:0]
	a.partStart = now
	return nil
}

// newSegment seals the open segment and starts the next one
func (a *Adapter) newSegment(start time.Duration) error {
	if a.started {
		if err := a.dst.Seal(a.seq, start-a.segStart); err != nil {
			return fmt.Errorf("seal segment: %w", err)
		}
	}
	a.seq++
	seg := segment.New(a.seq, a.hdr, a.nextDCN, time.Now())
	a.nextDCN = false
	if err := a.dst.Put(seg); err != nil {
		return fmt.Errorf("put segment: %w", err)
	}
	rate := a.rate.Rate()
	if a.Rate != nil {
		a.Rate.Set(rate.Float)
	}
	a.log.Debug().
		Int64("sequence", int64(a.seq)).
		Str("frame_rate", rate.String()).
		Msg("segment started")
	a.segStart = start
	a.partStart = start
	a.started = true
	return nil
}
