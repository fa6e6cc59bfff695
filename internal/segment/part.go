package segment

import "time"

// Part is a single fragment of a segment's media data. Parts are immutable
// once created and are stored contiguously, so a part is addressable by its
// byte offset within the segment as well as by its index.
type Part struct {
	Duration    time.Duration
	Independent bool
	Data        []byte
}

// Size returns the byte length of the part payload
func (p Part) Size() int64 { return int64(len(p.Data)) }
