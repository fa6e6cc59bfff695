// Package ratedetect estimates the frame rate of an incoming video stream
// from packet timestamps.
package ratedetect

import (
	"fmt"
	"math"
	"time"
)

// Detector tracks the frame rate of an incoming video stream. It keeps
// roughly one second of recent video timestamps and derives the rate from
// their spacing.
type Detector struct {
	times []time.Duration
}

// Append a video packet timestamp
func (d *Detector) Append(t time.Duration) {
	d.times = append(d.times, t)
	z := len(d.times) - 1
	// retain about a second worth of times
	delta := d.times[z] - d.times[0]
	if delta > 1002*time.Millisecond {
		copy(d.times, d.times[1:])
		d.times = d.times[:z]
	}
}

// Rate returns the estimated frame rate of the stream
func (d *Detector) Rate() Rate {
	z := len(d.times) - 1
	if z < 1 {
		return Rate{}
	}
	elapsed := (d.times[z] - d.times[0]).Seconds()
	rate := float64(z) / elapsed
	if r, ok := matches(rate, 1); ok {
		return r
	} else if r, ok = matches(rate, 1001); ok {
		return r
	}
	return Rate{Float: rate}
}

func matches(rate float64, denom int) (Rate, bool) {
	df := float64(denom)
	num := int(rate * df)
	if math.Round(float64(num)/df*100) == math.Round(rate*100) {
		return Rate{
			Numerator:   num,
			Denominator: denom,
			Float:       rate,
		}, true
	}
	return Rate{}, false
}

// Rate of stream in frames per second
type Rate struct {
	// Numerator of fractional rate
	Numerator int
	// Denominator of fractional rate. 1 if rate is integral, 0 if rate is floating-point
	Denominator int
	// Float value of rate
	Float float64
}

// String formats the rate as an integer, ratio or float
func (r Rate) String() string {
	switch r.Denominator {
	case 0:
		return fmt.Sprintf("%.2f", r.Float)
	case 1:
		return fmt.Sprintf("%d", r.Numerator)
	default:
		return fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
	}
}
