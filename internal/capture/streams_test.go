package capture

import (
	"io"
	"strings"
	"testing"
)

func TestResolveStreams(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		wantPre  string
		wantPost string
		wantErr  bool
	}{
		{"in order", "run-pre.mscap", "run-post.mscap", "run-pre.mscap", "run-post.mscap", false},
		{"reversed", "run-post.mscap", "run-pre.mscap", "run-pre.mscap", "run-post.mscap", false},
		{"directories ignored", "/post/dir/a-pre.pcap", "/pre/dir/a-post.pcap", "/post/dir/a-pre.pcap", "/pre/dir/a-post.pcap", false},
		{"both pre", "a-pre.mscap", "b-pre.mscap", "", "", true},
		{"neither", "a.mscap", "b.mscap", "", "", true},
		{"missing second", "a-pre.mscap", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pre, post, err := ResolveStreams(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveStreams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if pre != tt.wantPre || post != tt.wantPost {
				t.Errorf("ResolveStreams() = (%q, %q), want (%q, %q)", pre, post, tt.wantPre, tt.wantPost)
			}
		})
	}
}

func TestSideOf(t *testing.T) {
	tests := []struct {
		path string
		want Side
	}{
		{"run-pre.mscap", SidePre},
		{"run-post.mscap", SidePost},
		{"/pre/dir/a-post.pcap", SidePost},
		{"preset-post.pcap", SidePost},
		{"capture.mscap", ""},
	}

	for _, tt := range tests {
		if got := SideOf(tt.path); got != tt.want {
			t.Errorf("SideOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

type stubReader struct {
	recs []Record
	pos  int
}

func (r *stubReader) ReadSingle() (Record, error) {
	if r.pos >= len(r.recs) {
		return Record{}, io.EOF
	}
	rec := r.recs[r.pos]
	r.pos++
	return rec, nil
}

func (r *stubReader) Close() error { return nil }

func TestDump(t *testing.T) {
	r := &stubReader{recs: []Record{
		{ID: 5, Timestamp: 100},
		{Timestamp: 200, Payload: []byte{1, 2, 3}},
	}}

	var buf strings.Builder
	n, err := Dump(r, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Dump() = %d records, want 2", n)
	}

	out := buf.String()
	if !strings.Contains(out, "id=5 ts=100") {
		t.Errorf("output missing embedded-identifier line: %q", out)
	}
	if !strings.Contains(out, "ts=200 payload=3 bytes") {
		t.Errorf("output missing payload line: %q", out)
	}
}
