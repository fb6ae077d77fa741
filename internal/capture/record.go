// Package capture provides the record model and stream readers for the two
// observation-point captures consumed by the correlation engine.
package capture

// Side identifies which observation point a stream was taken at.
type Side string

const (
	// SidePre is the capture point immediately before the DUT.
	SidePre Side = "pre"

	// SidePost is the capture point immediately after the DUT.
	SidePost Side = "post"
)

// Record is a single captured packet as consumed by the correlation engine.
//
// For compact binary captures the identifier is carried directly in the
// record (ID). For generic packet captures the identifier must be derived
// from the payload window, which is retained here for the extractor.
//
// Timestamps are in the capture device's monotonic clock domain. Records are
// consumed once and discarded; nothing outside the correlation table retains
// them.
type Record struct {
	// ID is the embedded per-packet identifier. Zero when the capture
	// format carries no embedded identifier (generic packet captures).
	ID uint64

	// Timestamp is the capture timestamp in device-clock units.
	Timestamp uint64

	// Payload is the raw packet payload for generic captures, nil for
	// compact binary captures.
	Payload []byte
}
