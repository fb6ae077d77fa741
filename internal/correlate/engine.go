package correlate

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/wesleyorama2/dutlat/internal/capture"
	"github.com/wesleyorama2/dutlat/internal/stats"
)

// Phase represents the engine's position in its single pass over the two
// capture streams.
type Phase string

const (
	// PhasePrefill seeds the table from the pre stream only.
	PhasePrefill Phase = "prefill"

	// PhaseSteady merges both streams, pre leading post.
	PhaseSteady Phase = "steady"

	// PhaseDrain resolves remaining post records after pre is exhausted.
	PhaseDrain Phase = "drain"

	// PhaseFinished means both streams were exhausted without an abort.
	PhaseFinished Phase = "finished"

	// PhaseAborted is the terminal state after a threshold violation.
	PhaseAborted Phase = "aborted"
)

// Config contains the engine's tunables.
type Config struct {
	// Threshold is the signed lower bound for an acceptable latency
	// sample, in device-clock units. Small negatives absorb clock-source
	// jitter; anything below it aborts the run.
	Threshold int64

	// PrefillLead is the safety bound on prefill, in addressable slots:
	// prefill stops that many slots short of filling the table, so the
	// pre stream keeps a bounded lead over post.
	PrefillLead uint64
}

// DefaultConfig returns the engine defaults: a -50 unit threshold and a
// 100-slot prefill lead.
func DefaultConfig() Config {
	return Config{
		Threshold:   -50,
		PrefillLead: 100,
	}
}

// ThresholdError is the unrecoverable mid-run abort: a resolved latency
// sample fell below the negative-latency threshold. It carries the full
// diagnostic context; partial statistics are never finalized after it.
type ThresholdError struct {
	ID     uint64
	PreTS  uint64
	PostTS uint64
	Diff   int64
	Hits   uint64
	Misses uint64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("latency %d below threshold for identifier %#x (pre=%d post=%d, %d hits %d misses so far)",
		e.Diff, e.ID, e.PreTS, e.PostTS, e.Hits, e.Misses)
}

// Engine drives the prefill, steady-state merge, and drain phases over the
// two ordered record streams, using the table and extractor, and feeds the
// statistics aggregator.
//
// The engine is single-threaded and single-pass: it exclusively owns its
// table and both readers for the run's lifetime. Pre records are consumed in
// stream order, post records in stream order; cross-stream ordering comes
// only from the alternation rule, never from timestamp sorting.
type Engine struct {
	pre   capture.Reader
	post  capture.Reader
	ext   Extractor
	table *Table
	agg   *stats.Aggregator
	cfg   Config
	log   *logrus.Entry

	phase  Phase
	sawHit bool
}

// NewEngine creates an engine over the given streams. The table and
// aggregator become engine-owned until Run returns.
func NewEngine(pre, post capture.Reader, ext Extractor, table *Table, agg *stats.Aggregator, cfg Config) *Engine {
	return &Engine{
		pre:   pre,
		post:  post,
		ext:   ext,
		table: table,
		agg:   agg,
		cfg:   cfg,
		log:   logrus.WithField("component", "correlate"),
		phase: PhasePrefill,
	}
}

// Phase returns the engine's current phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Run executes the full pass. It returns nil when both streams were
// exhausted normally, a *ThresholdError on the abort path, or a read error.
// On any non-nil return the aggregator must not be finalized.
func (e *Engine) Run() error {
	preDone, err := e.prefill()
	if err != nil {
		return err
	}

	if preDone {
		e.phase = PhaseDrain
	} else {
		e.phase = PhaseSteady
	}
	postDone := false

	// Steady state: insert one pre record, then resolve one post record,
	// per step. Pre always advances, so the table reliably holds the
	// pending entry by the time its post counterpart arrives. Once pre
	// exhausts this degrades into the drain loop over post alone.
	for !preDone || !postDone {
		if !preDone {
			rec, rerr := e.pre.ReadSingle()
			if rerr == io.EOF {
				preDone = true
				if !postDone {
					e.phase = PhaseDrain
				}
			} else if rerr != nil {
				return fmt.Errorf("pre stream: %w", rerr)
			} else {
				e.insertPre(rec)
			}
		}

		if !postDone {
			rec, rerr := e.post.ReadSingle()
			if rerr == io.EOF {
				postDone = true
			} else if rerr != nil {
				return fmt.Errorf("post stream: %w", rerr)
			} else if rerr = e.resolvePost(rec); rerr != nil {
				return rerr
			}
		}
	}

	e.phase = PhaseFinished
	return nil
}

// prefill seeds the table from the pre stream until the stream exhausts or
// the lead bound is reached. It reports whether pre is already exhausted.
func (e *Engine) prefill() (preDone bool, err error) {
	limit := e.table.Capacity()
	if e.cfg.PrefillLead < limit {
		limit -= e.cfg.PrefillLead
	}

	for inserted := uint64(0); inserted < limit; inserted++ {
		rec, rerr := e.pre.ReadSingle()
		if rerr == io.EOF {
			return true, nil
		}
		if rerr != nil {
			return false, fmt.Errorf("pre stream: %w", rerr)
		}
		e.insertPre(rec)
	}
	return false, nil
}

// insertPre stores a pre-side timestamp, counting table aliasing.
func (e *Engine) insertPre(rec capture.Record) {
	id := e.ext.Extract(rec)
	e.agg.CountPre()
	if e.table.Insert(id, rec.Timestamp) {
		e.agg.CountOverwrite()
	}
}

// resolvePost looks up the post record's pending pre timestamp and turns it
// into a hit, a counted anomaly, or the fatal threshold abort.
func (e *Engine) resolvePost(rec capture.Record) error {
	id := e.ext.Extract(rec)
	e.agg.CountPost()

	slot := e.table.Lookup(id)
	if slot == 0 {
		// No pending pre timestamp for this identifier. Before the
		// first hit this is start-up noise rather than loss.
		e.agg.CountMiss(!e.sawHit)
		return nil
	}

	diff := int64(rec.Timestamp) - int64(slot)
	if diff < e.cfg.Threshold {
		e.phase = PhaseAborted
		hits, misses := e.agg.HitMissCounts()
		e.log.WithFields(logrus.Fields{
			"identifier":  fmt.Sprintf("%#x", id),
			"preTS":       slot,
			"postTS":      rec.Timestamp,
			"diff":        diff,
			"threshold":   e.cfg.Threshold,
			"hitsSoFar":   hits,
			"missesSoFar": misses,
		}).Error("latency below threshold, aborting run")
		return &ThresholdError{
			ID:     id,
			PreTS:  slot,
			PostTS: rec.Timestamp,
			Diff:   diff,
			Hits:   hits,
			Misses: misses,
		}
	}

	e.table.Clear(id)

	if diff < 0 {
		// Within jitter tolerance but not a usable sample.
		e.agg.CountInvalid()
		return nil
	}

	e.sawHit = true
	e.agg.RecordHit(diff)
	return nil
}
