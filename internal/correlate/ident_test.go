package correlate

import (
	"bytes"
	"testing"

	"github.com/wesleyorama2/dutlat/internal/capture"
)

func TestEmbedded_Extract(t *testing.T) {
	ext := Embedded{}
	if got := ext.Extract(capture.Record{ID: 42, Timestamp: 100}); got != 42 {
		t.Errorf("Extract() = %d, want 42", got)
	}
}

func TestDerived_Deterministic(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab, 0xcd}, 30)
	rec := capture.Record{Payload: payload}

	ext := NewDerived(nil)
	first := ext.Extract(rec)
	second := ext.Extract(rec)
	if first != second {
		t.Errorf("repeated extraction differs: %#x vs %#x", first, second)
	}

	// A fresh extractor agrees: no hidden state beyond the scratch buffer.
	if got := NewDerived(nil).Extract(rec); got != first {
		t.Errorf("fresh extractor yields %#x, want %#x", got, first)
	}
}

func TestDerived_ScratchClearedBetweenExtractions(t *testing.T) {
	long := capture.Record{Payload: bytes.Repeat([]byte{0xff}, 100)}
	short := capture.Record{Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}}

	reused := NewDerived(nil)
	reused.Extract(long)
	afterLong := reused.Extract(short)

	fresh := NewDerived(nil).Extract(short)
	if afterLong != fresh {
		t.Errorf("scratch leak: short payload after long one hashed to %#x, want %#x", afterLong, fresh)
	}
}

func TestDerived_TimestampTrailerExcluded(t *testing.T) {
	// Same identifying bytes, different hardware-timestamp trailers, as
	// the same packet looks at the two capture points.
	base := bytes.Repeat([]byte{0x11}, 24)

	preRec := capture.Record{Payload: append(append([]byte{}, base...), 0, 0, 0, 1, 0, 0, 0, 2)}
	postRec := capture.Record{Payload: append(append([]byte{}, base...), 0, 0, 0, 9, 0, 0, 0, 8)}

	ext := NewDerived(nil)
	if ext.Extract(preRec) != ext.Extract(postRec) {
		t.Error("identifiers must match across capture points despite differing trailers")
	}
}

func TestDerived_CustomMatcher(t *testing.T) {
	// Matcher selecting only the first 4 bytes.
	ext := NewDerived(func(window []byte) []byte {
		if len(window) < 4 {
			return window
		}
		return window[:4]
	})

	a := ext.Extract(capture.Record{Payload: []byte{1, 2, 3, 4, 99, 99}})
	b := ext.Extract(capture.Record{Payload: []byte{1, 2, 3, 4, 7, 7, 7}})
	if a != b {
		t.Error("matcher-selected spans are equal, identifiers should match")
	}

	c := ext.Extract(capture.Record{Payload: []byte{9, 2, 3, 4, 99, 99}})
	if a == c {
		t.Error("different spans should hash to different identifiers")
	}
}
