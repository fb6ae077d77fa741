package pace

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Mode selects the pacer's transmission strategy.
type Mode string

const (
	// ModeGreedy drains the queue in fixed-size batches as fast as the
	// link allows.
	ModeGreedy Mode = "greedy"

	// ModeCBR transmits one packet per fixed cycle interval, busy-waiting
	// on the cycle counter between sends.
	ModeCBR Mode = "cbr"
)

// defaultBatchSize is the dequeue batch size, matching the egress burst
// size the transmit path is tuned for.
const defaultBatchSize = 64

// Config contains the pacer's tunables.
type Config struct {
	// Mode selects greedy or constant-bit-rate transmission.
	Mode Mode

	// Rate is the CBR target in packets per second. Ignored in greedy
	// mode.
	Rate float64

	// BatchSize is the dequeue batch size (default: 64).
	BatchSize int

	// IdleWindow bounds deadline catch-up: after a gap with no traffic
	// longer than this, the schedule restarts at "now" instead of
	// releasing a burst (default: 10ms).
	IdleWindow time.Duration
}

// DefaultConfig returns the pacer defaults.
func DefaultConfig() Config {
	return Config{
		Mode:       ModeCBR,
		BatchSize:  defaultBatchSize,
		IdleWindow: 10 * time.Millisecond,
	}
}

// Validate checks the configuration for a runnable combination.
func (c Config) Validate() error {
	if c.Mode != ModeGreedy && c.Mode != ModeCBR {
		return fmt.Errorf("unknown pacing mode %q", c.Mode)
	}
	if c.Mode == ModeCBR && c.Rate <= 0 {
		return fmt.Errorf("cbr mode requires a positive target rate, got %v", c.Rate)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// Pacer transmits packets from a work queue through an egress queue, either
// greedily or at a constant bit rate.
//
// A pacer runs on a dedicated worker per egress queue. The CBR loop never
// sleeps: it spins on the cycle counter, because scheduler-mediated delay
// cannot hold sub-microsecond inter-packet spacing. The loop has no natural
// termination; it runs until the context is cancelled.
type Pacer struct {
	queue *Queue
	tx    TxQueue
	clock Clock
	cfg   Config
	log   *logrus.Entry

	sent atomic.Uint64
}

// NewPacer creates a pacer over the given queues and clock.
func NewPacer(queue *Queue, tx TxQueue, clock Clock, cfg Config) (*Pacer, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = DefaultConfig().IdleWindow
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pacer{
		queue: queue,
		tx:    tx,
		clock: clock,
		cfg:   cfg,
		log:   logrus.WithField("component", "pace"),
	}, nil
}

// Sent returns the number of packets transmitted so far.
func (p *Pacer) Sent() uint64 {
	return p.sent.Load()
}

// Run executes the configured transmission loop until ctx is cancelled.
func (p *Pacer) Run(ctx context.Context) error {
	switch p.cfg.Mode {
	case ModeGreedy:
		return p.runGreedy(ctx)
	case ModeCBR:
		return p.runCBR(ctx)
	default:
		return fmt.Errorf("unknown pacing mode %q", p.cfg.Mode)
	}
}

// runGreedy drains the queue in batches, retrying partial sends until every
// packet of the batch is out.
func (p *Pacer) runGreedy(ctx context.Context) error {
	buf := make([]Packet, p.cfg.BatchSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := p.queue.TryDequeue(buf, p.cfg.BatchSize)
		sent := 0
		for sent < len(batch) {
			sent += p.tx.Burst(batch[sent:])
		}
		p.sent.Add(uint64(sent))
	}
}

// runCBR transmits one packet per interval of interval = Hz/rate cycles,
// spinning on the cycle counter until each deadline.
func (p *Pacer) runCBR(ctx context.Context) error {
	hz := p.clock.Hz()
	interval := uint64(math.Round(float64(hz) / p.cfg.Rate))
	if interval == 0 {
		interval = 1
	}
	idleCycles := uint64(p.cfg.IdleWindow.Seconds() * float64(hz))

	p.log.WithFields(logrus.Fields{
		"rate":     p.cfg.Rate,
		"hz":       hz,
		"interval": interval,
	}).Debug("starting cbr loop")

	buf := make([]Packet, p.cfg.BatchSize)
	var next uint64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := p.queue.TryDequeue(buf, p.cfg.BatchSize)
		if len(batch) == 0 {
			continue
		}

		// The gap is measured when traffic resumes, not while idling:
		// after a gap longer than the idle window the schedule
		// restarts at now, so the first deadline is the current cycle
		// instead of a stale one that would release a catch-up burst.
		cur := p.clock.Cycles()
		if int64(cur-next) > int64(idleCycles) {
			next = cur
		}

		for i := range batch {
			for p.clock.Cycles() < next {
				// Busy-wait until the deadline.
			}
			next += interval
			for p.tx.Burst(batch[i:i+1]) == 0 {
				// Retry until the packet is out.
			}
			p.sent.Add(1)
		}
	}
}
