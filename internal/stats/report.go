package stats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
)

// Percentiles is the HDR-histogram view of the latency distribution, in
// device-clock units.
type Percentiles struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
	P50 int64 `json:"p50"`
	P90 int64 `json:"p90"`
	P99 int64 `json:"p99"`
}

// Report is the finalized result of one correlation run.
type Report struct {
	Hits                 uint64 `json:"hits"`
	Misses               uint64 `json:"misses"`
	ColdMisses           uint64 `json:"coldMisses"`
	InvalidTimestampHits uint64 `json:"invalidTimestampHits"`
	PreCount             uint64 `json:"preCount"`
	PostCount            uint64 `json:"postCount"`
	Overwrites           uint64 `json:"overwrites"`

	TotalReceived uint64  `json:"totalReceived"`
	LossPct       float64 `json:"lossPct"`
	TotalLossPct  float64 `json:"totalLossPct"`
	Mean          float64 `json:"mean"`
	Variance      float64 `json:"variance"`

	Percentiles Percentiles `json:"percentiles"`

	// BucketWidth is the fixed histogram bucket width the buckets were
	// accumulated with.
	BucketWidth int64 `json:"bucketWidth"`

	buckets map[int64]uint64
}

// WriteHistogram writes the fixed-width histogram as plain two-column text,
// one row per populated bucket in ascending bucket order: the bucket's lower
// bound, then the sample count. The output is suitable for external
// plotting, and writing twice from the same report yields identical bytes.
func (r *Report) WriteHistogram(w io.Writer) error {
	indices := make([]int64, 0, len(r.buckets))
	for idx := range r.buckets {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	bw := bufio.NewWriter(w)
	for _, idx := range indices {
		if _, err := fmt.Fprintf(bw, "%d %d\n", idx*r.BucketWidth, r.buckets[idx]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveHistogram writes the histogram artifact to a file.
func (r *Report) SaveHistogram(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create histogram file %s: %w", path, err)
	}
	if err := r.WriteHistogram(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write histogram: %w", err)
	}
	return f.Close()
}
