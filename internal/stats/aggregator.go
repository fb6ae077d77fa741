// Package stats provides single-pass incremental statistics over latency
// samples: outcome counters, a fixed-bucket-width histogram, HDR-histogram
// percentiles, and numerically stable running mean/variance.
package stats

import (
	"fmt"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Config contains configuration for the aggregator.
type Config struct {
	// BucketWidth is the fixed histogram bucket width in device-clock
	// units (default: 1000).
	BucketWidth int64

	// HistogramMin is the minimum value recordable by the HDR histogram
	// (default: 1).
	HistogramMin int64

	// HistogramMax is the maximum value recordable by the HDR histogram
	// (default: 60e9, one minute of nanoseconds).
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures for the HDR
	// histogram (default: 3).
	HistogramSigFigs int
}

// DefaultConfig returns the default aggregator configuration.
func DefaultConfig() Config {
	return Config{
		BucketWidth:      1000,
		HistogramMin:     1,
		HistogramMax:     60_000_000_000,
		HistogramSigFigs: 3,
	}
}

// Aggregator accumulates a run's statistics incrementally. Sample counts can
// reach tens of millions, so no sample array is ever retained: each hit
// updates the bucket histogram, the HDR histogram, and the Welford
// mean/variance accumulators in O(1).
//
// The aggregator has a single owner (the correlation engine) for the run's
// duration and is not safe for concurrent use.
type Aggregator struct {
	config Config

	hits       uint64
	misses     uint64
	coldMisses uint64
	invalid    uint64
	preCount   uint64
	postCount  uint64
	overwrites uint64

	// Fixed-width buckets keyed by floor(diff / BucketWidth).
	buckets map[int64]uint64

	// HDR histogram for the percentile view of the summary.
	hdr *hdrhistogram.Histogram

	// Welford accumulators.
	count int64
	mean  float64
	m2    float64

	finalized bool
}

// NewAggregator creates an aggregator with the given configuration. A
// non-positive bucket width falls back to the default.
func NewAggregator(config Config) *Aggregator {
	if config.BucketWidth <= 0 {
		config.BucketWidth = DefaultConfig().BucketWidth
	}
	if config.HistogramMax <= config.HistogramMin {
		def := DefaultConfig()
		config.HistogramMin = def.HistogramMin
		config.HistogramMax = def.HistogramMax
	}
	if config.HistogramSigFigs < 1 || config.HistogramSigFigs > 5 {
		config.HistogramSigFigs = DefaultConfig().HistogramSigFigs
	}
	return &Aggregator{
		config:  config,
		buckets: make(map[int64]uint64),
		hdr:     hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
	}
}

// RecordHit records one resolved latency sample.
func (a *Aggregator) RecordHit(diff int64) {
	a.hits++

	a.buckets[bucketIndex(diff, a.config.BucketWidth)]++

	clamped := diff
	if clamped < a.config.HistogramMin {
		clamped = a.config.HistogramMin
	}
	if clamped > a.config.HistogramMax {
		clamped = a.config.HistogramMax
	}
	a.hdr.RecordValue(clamped)

	a.count++
	delta := float64(diff) - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (float64(diff) - a.mean)
}

// CountMiss records a post record with no pending pre timestamp. Cold
// misses are tallied separately from steady-state loss.
func (a *Aggregator) CountMiss(cold bool) {
	a.misses++
	if cold {
		a.coldMisses++
	}
}

// CountInvalid records a resolved pair whose timestamps produced no usable
// sample.
func (a *Aggregator) CountInvalid() {
	a.invalid++
}

// CountOverwrite records a table insertion that discarded a still-pending
// entry.
func (a *Aggregator) CountOverwrite() {
	a.overwrites++
}

// CountPre records one consumed pre-side record.
func (a *Aggregator) CountPre() {
	a.preCount++
}

// CountPost records one consumed post-side record.
func (a *Aggregator) CountPost() {
	a.postCount++
}

// HitMissCounts returns the running hit and miss counters, for diagnostic
// context on the abort path.
func (a *Aggregator) HitMissCounts() (hits, misses uint64) {
	return a.hits, a.misses
}

// Variance returns the running sample variance. It is zero until at least
// two samples were recorded.
func (a *Aggregator) Variance() float64 {
	if a.count < 2 {
		return 0
	}
	return a.m2 / float64(a.count-1)
}

// Mean returns the running mean latency.
func (a *Aggregator) Mean() float64 {
	return a.mean
}

// Finalize computes the derived quantities and returns the run report.
// Finalizing twice is an error: a report is exported exactly once per run.
func (a *Aggregator) Finalize() (*Report, error) {
	if a.finalized {
		return nil, fmt.Errorf("statistics already finalized")
	}
	a.finalized = true

	received := a.hits + a.misses
	lossPct := 0.0
	totalLossPct := 0.0
	if received > 0 {
		lossPct = float64(a.misses) / float64(received) * 100
		totalLossPct = float64(a.misses+a.invalid) / float64(received) * 100
	}

	return &Report{
		Hits:                 a.hits,
		Misses:               a.misses,
		ColdMisses:           a.coldMisses,
		InvalidTimestampHits: a.invalid,
		PreCount:             a.preCount,
		PostCount:            a.postCount,
		Overwrites:           a.overwrites,
		TotalReceived:        received,
		LossPct:              lossPct,
		TotalLossPct:         totalLossPct,
		Mean:                 a.mean,
		Variance:             a.Variance(),
		Percentiles: Percentiles{
			Min: a.hdr.Min(),
			Max: a.hdr.Max(),
			P50: a.hdr.ValueAtQuantile(50),
			P90: a.hdr.ValueAtQuantile(90),
			P99: a.hdr.ValueAtQuantile(99),
		},
		BucketWidth: a.config.BucketWidth,
		buckets:     a.buckets,
	}, nil
}

// bucketIndex is floor(diff / width), exact for negative diffs too (Go
// integer division truncates toward zero).
func bucketIndex(diff, width int64) int64 {
	idx := diff / width
	if diff < 0 && diff%width != 0 {
		idx--
	}
	return idx
}
