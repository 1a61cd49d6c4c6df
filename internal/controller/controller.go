// Package controller runs the resumable harvest/verify cycle.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shelterscout/petharvester/internal/dedup"
	"github.com/shelterscout/petharvester/internal/harvest"
	"github.com/shelterscout/petharvester/internal/metrics"
)

// ErrAlreadyRunning is returned by Start when a cycle loop is active.
var ErrAlreadyRunning = errors.New("harvesting already running")

// Config tunes the controller loop.
type Config struct {
	MaxPage          int
	Categories       []harvest.Category
	RetryAttempts    int
	RetryDelay       time.Duration
	ItemDelay        time.Duration
	VerifyDelay      time.Duration
	FailureThreshold int
	Cooldown         time.Duration
	RestartInterval  time.Duration
	SnapshotPrefix   string
	Topic            string
}

func (c Config) withDefaults() Config {
	if c.MaxPage <= 0 {
		c.MaxPage = 10000
	}
	if len(c.Categories) == 0 {
		c.Categories = []harvest.Category{harvest.CategoryDog, harvest.CategoryCat}
	}
	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.RestartInterval <= 0 {
		c.RestartInterval = time.Hour
	}
	return c
}

// Controller owns the harvest/verify cycle: it resumes from the persisted
// checkpoint, walks the page range, prunes stale records, and repeats
// until stopped. At most one loop goroutine runs at a time.
type Controller struct {
	cfg         Config
	records     harvest.RecordStore
	checkpoints harvest.CheckpointStore
	index       *dedup.Index
	lister      harvest.PageLister
	fetcher     harvest.ItemFetcher
	validator   harvest.Validator
	publisher   harvest.Publisher
	snapshots   harvest.SnapshotSink
	clock       harvest.Clock
	logger      *zap.Logger

	status *Status
	rate   *RateTracker

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New wires a Controller. publisher and snapshots may be nil; the
// corresponding cycle events are then skipped.
func New(
	cfg Config,
	records harvest.RecordStore,
	checkpoints harvest.CheckpointStore,
	index *dedup.Index,
	lister harvest.PageLister,
	fetcher harvest.ItemFetcher,
	validator harvest.Validator,
	publisher harvest.Publisher,
	snapshots harvest.SnapshotSink,
	clock harvest.Clock,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		cfg:         cfg.withDefaults(),
		records:     records,
		checkpoints: checkpoints,
		index:       index,
		lister:      lister,
		fetcher:     fetcher,
		validator:   validator,
		publisher:   publisher,
		snapshots:   snapshots,
		clock:       clock,
		logger:      logger,
		status:      NewStatus(),
		rate:        NewRateTracker(DefaultRateWindow),
	}
}

// Start launches the cycle loop. It returns ErrAlreadyRunning if a loop
// is active; the running loop is left untouched.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.status.SetRunning(true)

	go func() {
		defer close(done)
		c.run(runCtx)
		c.status.SetRunning(false)
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()
	return nil
}

// Stop requests a cooperative shutdown of the loop. It reports whether a
// loop was running.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Done returns a channel closed when the loop goroutine has exited. If no
// loop is running the returned channel is already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

// Running reports whether the cycle loop is active.
func (c *Controller) Running() bool {
	return c.status.Running()
}

// Status returns a consistent snapshot of the loop position and totals.
func (c *Controller) Status() StatusSnapshot {
	return c.status.Snapshot()
}

// Rate returns harvest throughput in items per minute over the sliding
// window.
func (c *Controller) Rate() float64 {
	return c.rate.Rate(c.clock.Now())
}

func (c *Controller) run(ctx context.Context) {
	c.logger.Info("controller loop started")
	for ctx.Err() == nil {
		if err := c.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			c.logger.Error("cycle failed, cooling down",
				zap.Error(err),
				zap.Duration("cooldown", c.cfg.Cooldown))
			c.pause(ctx, c.cfg.Cooldown)
		}
	}
	metrics.SetPhase("idle")
	c.logger.Info("controller loop stopped")
}

// runCycle resumes from the checkpoint, harvests the page range, verifies
// the table, and clears the checkpoint. A nil return with work remaining
// means the loop was stopped or the restart interval elapsed; the saved
// checkpoint carries the position either way.
func (c *Controller) runCycle(ctx context.Context) error {
	cycleID := newCycleID()
	deadline := c.clock.Now().Add(c.cfg.RestartInterval)

	// Caches rebuild lazily from the store at every cycle boundary.
	c.index.Invalidate()

	cp := c.loadCheckpoint(ctx)
	c.logger.Info("cycle starting",
		zap.String("cycle_id", cycleID),
		zap.String("phase", string(cp.Phase)),
		zap.Int("page", cp.Page),
		zap.String("category", string(cp.Category)),
		zap.String("resume_key", cp.ResumeKey))

	if cp.Phase == harvest.PhaseVerifying {
		done, err := c.runVerification(ctx, cycleID, cp.ResumeKey)
		switch {
		case err != nil:
			// A resumed verification that cannot make progress falls
			// back to a clean harvest rather than wedging the loop.
			c.logger.Error("resumed verification failed, restarting harvest", zap.Error(err))
			if cerr := c.checkpoints.Clear(ctx); cerr != nil {
				return fmt.Errorf("clear checkpoint: %w", cerr)
			}
		case !done:
			return nil
		default:
			if err := c.checkpoints.Clear(ctx); err != nil {
				return fmt.Errorf("clear checkpoint: %w", err)
			}
		}
		cp = harvest.DefaultCheckpoint(c.cfg.Categories)
	}

	done, err := c.runHarvest(ctx, cp, deadline)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}

	done, err = c.runVerification(ctx, cycleID, "")
	if err != nil {
		return err
	}
	if !done {
		return nil
	}

	if err := c.checkpoints.Clear(ctx); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	c.logger.Info("cycle complete", zap.String("cycle_id", cycleID))
	return nil
}

// loadCheckpoint returns the stored checkpoint, degrading anything
// missing, unreadable, or out of range to the default start position.
func (c *Controller) loadCheckpoint(ctx context.Context) harvest.Checkpoint {
	def := harvest.DefaultCheckpoint(c.cfg.Categories)

	cp, err := c.checkpoints.Load(ctx)
	if errors.Is(err, harvest.ErrNotFound) {
		return def
	}
	if err != nil {
		c.logger.Warn("checkpoint unreadable, starting fresh", zap.Error(err))
		return def
	}

	switch cp.Phase {
	case harvest.PhaseVerifying:
		return cp
	case harvest.PhaseHarvesting:
		if cp.Page < 1 || cp.Page > c.cfg.MaxPage || !c.knownCategory(cp.Category) {
			c.logger.Warn("checkpoint out of range, starting fresh",
				zap.Int("page", cp.Page),
				zap.String("category", string(cp.Category)))
			return def
		}
		return cp
	default:
		c.logger.Warn("checkpoint has unknown phase, starting fresh",
			zap.String("phase", string(cp.Phase)))
		return def
	}
}

func (c *Controller) knownCategory(cat harvest.Category) bool {
	for _, known := range c.cfg.Categories {
		if cat == known {
			return true
		}
	}
	return false
}

// pause sleeps for d or until the context is canceled.
func (c *Controller) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func newCycleID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
