package segment

// MSN is a Media Sequence Number, it starts at 0 for the first segment and
// increments for every subsequent segment.
type MSN int64

// PartMSN identifies a segment by MSN and a part thereof
type PartMSN struct {
	MSN  MSN
	Part int
}
