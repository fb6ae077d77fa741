package capture

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ResolveStreams decides which of two capture paths is the pre-DUT stream
// and which the post-DUT stream, based on the file naming convention
// ("pre"/"post" in the base name).
//
// Dual-stream correlation cannot proceed with a missing or ambiguous pair,
// so both conditions are fatal to the run.
func ResolveStreams(pathA, pathB string) (pre, post string, err error) {
	if pathA == "" || pathB == "" {
		return "", "", fmt.Errorf("dual-stream correlation requires two capture files, got %q and %q", pathA, pathB)
	}

	switch {
	case SideOf(pathA) == SidePre && SideOf(pathB) == SidePost:
		return pathA, pathB, nil
	case SideOf(pathB) == SidePre && SideOf(pathA) == SidePost:
		return pathB, pathA, nil
	default:
		return "", "", fmt.Errorf("cannot order capture files %q and %q: names must contain \"pre\" and \"post\"", pathA, pathB)
	}
}

// SideOf classifies a capture path by its base name. A name carrying
// "post" is the post side even when it also contains "pre"; a name
// carrying neither has no side.
func SideOf(path string) Side {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "post"):
		return SidePost
	case strings.Contains(name, "pre"):
		return SidePre
	default:
		return ""
	}
}

// Dump writes every remaining record of a stream as one text line per
// record, for the debug/dry-run path that bypasses correlation entirely.
func Dump(r Reader, w io.Writer) (int, error) {
	n := 0
	for {
		rec, err := r.ReadSingle()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if rec.Payload != nil {
			fmt.Fprintf(w, "ts=%d payload=%d bytes\n", rec.Timestamp, len(rec.Payload))
		} else {
			fmt.Fprintf(w, "id=%d ts=%d\n", rec.ID, rec.Timestamp)
		}
		n++
	}
}
