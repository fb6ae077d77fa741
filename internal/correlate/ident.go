// Package correlate implements the pre/post packet correlation engine: a
// streaming, fixed-capacity, hash-indexed match between two ordered capture
// streams, producing per-packet latency samples.
package correlate

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"github.com/wesleyorama2/dutlat/internal/capture"
)

// Extractor derives the stable per-packet identifier used to index the
// correlation table. Extraction is deterministic: the identifier is a pure
// function of the record contents (and, for derived extraction, the fixed
// hash key). The variant is selected once per run by capture format.
type Extractor interface {
	Extract(rec capture.Record) uint64
}

// Embedded reads the identifier directly from the record. Exact, no
// collisions beyond table-mask truncation.
type Embedded struct{}

// Extract returns the record's embedded identifier.
func (Embedded) Extract(rec capture.Record) uint64 {
	return rec.ID
}

// scratchWindowSize is the fixed payload window examined by derived
// extraction. Payload beyond the window does not contribute to the
// identifier.
const scratchWindowSize = 128

// derivedHashKey is the fixed key for the keyed identifier hash. Both sides
// of a run must hash with the same key or no packet would ever match.
var derivedHashKey = []byte("dutlat-ident-key")

// Matcher selects the identifying byte span out of a packet's scratch
// window, e.g. a protocol sequence-number field. The returned span must be a
// pure function of the window contents.
type Matcher func(window []byte) []byte

// Derived computes the identifier by hashing a matcher-selected span of the
// payload with a keyed 64-bit BLAKE2b digest.
//
// The scratch window is owned by the extractor and zero-filled before every
// extraction, so a short payload never hashes leftover bytes from the
// previous packet. A Derived value is therefore not safe for concurrent use;
// give each goroutine its own.
type Derived struct {
	match   Matcher
	scratch [scratchWindowSize]byte
}

// NewDerived creates a derived extractor. A nil matcher selects the whole
// window minus the hardware-timestamp trailer.
func NewDerived(match Matcher) *Derived {
	if match == nil {
		match = trimTimestampTrailer
	}
	return &Derived{match: match}
}

// Extract hashes the matched payload span to a 64-bit identifier.
func (d *Derived) Extract(rec capture.Record) uint64 {
	for i := range d.scratch {
		d.scratch[i] = 0
	}
	n := copy(d.scratch[:], rec.Payload)
	span := d.match(d.scratch[:n])

	h, err := blake2b.New(8, derivedHashKey)
	if err != nil {
		// Key length is fixed and valid; New cannot fail here.
		panic(err)
	}
	h.Write(span)
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// trimTimestampTrailer drops the trailing 8-byte hardware timestamp, which
// differs between the pre and post captures of the same packet and must
// never feed the identifier.
func trimTimestampTrailer(window []byte) []byte {
	if len(window) <= 8 {
		return window
	}
	return window[:len(window)-8]
}
