package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shelterscout/petharvester/internal/harvest"
	"github.com/shelterscout/petharvester/internal/metrics"
)

// runVerification re-fetches every stored record and prunes the ones whose
// source page no longer yields enough fields. A non-empty resumeKey skips
// straight to that record, keeping everything before it unexamined; the
// resume record itself is verified again.
//
// The checkpoint is saved before each validation so a crash re-attempts
// the exact record that was in flight. done=false without error means the
// loop was stopped mid-phase.
func (c *Controller) runVerification(ctx context.Context, cycleID string, resumeKey string) (bool, error) {
	c.status.SetPhase(harvest.PhaseVerifying)
	metrics.SetPhase(string(harvest.PhaseVerifying))

	records, err := c.records.ReadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("read table for verification: %w", err)
	}

	kept := make([]harvest.Record, 0, len(records))
	removed := 0
	started := resumeKey == ""

	for _, record := range records {
		if !started {
			if record.Key != resumeKey {
				kept = append(kept, record)
				continue
			}
			started = true
		}
		if ctx.Err() != nil {
			return false, nil
		}

		cp := harvest.Checkpoint{
			Phase:     harvest.PhaseVerifying,
			ResumeKey: record.Key,
			SavedAt:   c.clock.Now(),
		}
		if err := c.checkpoints.Save(ctx, cp); err != nil {
			return false, fmt.Errorf("save verification checkpoint: %w", err)
		}

		failed, err := c.validator.Validate(ctx, record.Key)
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			return false, fmt.Errorf("verify %s: %w", record.Key, err)
		}

		if failed >= c.cfg.FailureThreshold {
			removed++
			c.status.IncRemoved()
			metrics.ObserveVerification("removed")
			c.logger.Info("pruning stale record",
				zap.String("key", record.Key),
				zap.Int("failed_fields", failed))
		} else {
			kept = append(kept, record)
			c.status.IncVerified()
			metrics.ObserveVerification("kept")
		}

		c.pause(ctx, c.cfg.VerifyDelay)
	}

	if !started {
		// The resume record was pruned from the table by an earlier
		// rewrite; nothing was examined this pass, so leave it alone.
		c.logger.Warn("verification resume key not found, keeping table unchanged",
			zap.String("resume_key", resumeKey))
		return true, nil
	}

	if err := c.records.BulkRewrite(ctx, kept); err != nil {
		return false, fmt.Errorf("rewrite verified table: %w", err)
	}
	c.index.Invalidate()

	c.logger.Info("verification complete",
		zap.String("cycle_id", cycleID),
		zap.Int("kept", len(kept)),
		zap.Int("removed", removed))

	c.snapshotTable(ctx, cycleID)
	c.publishCycleSummary(ctx, cycleID, len(kept), removed)
	return true, nil
}

// snapshotTable archives the rewritten table when a sink is configured.
// Snapshot failures are logged, never fatal to the cycle.
func (c *Controller) snapshotTable(ctx context.Context, cycleID string) {
	if c.snapshots == nil {
		return
	}
	data, err := c.records.Export(ctx)
	if err != nil {
		c.logger.Warn("snapshot export failed", zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s-%s.csv", c.clock.Now().Format("20060102T150405Z"), cycleID)
	if c.cfg.SnapshotPrefix != "" {
		name = c.cfg.SnapshotPrefix + "/" + name
	}
	uri, err := c.snapshots.PutSnapshot(ctx, name, "text/csv", data)
	if err != nil {
		c.logger.Warn("snapshot upload failed", zap.String("name", name), zap.Error(err))
		return
	}
	c.logger.Info("table snapshot uploaded", zap.String("uri", uri))
}

// publishCycleSummary emits the end-of-cycle event when a publisher and
// topic are configured. Publish failures are logged, never fatal.
func (c *Controller) publishCycleSummary(ctx context.Context, cycleID string, kept, removed int) {
	if c.publisher == nil || c.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"cycle_id":     cycleID,
		"kept":         kept,
		"removed":      removed,
		"completed_at": c.clock.Now(),
	}
	id, err := c.publisher.Publish(ctx, c.cfg.Topic, payload)
	if err != nil {
		c.logger.Warn("cycle summary publish failed", zap.Error(err))
		return
	}
	c.logger.Debug("cycle summary published",
		zap.String("cycle_id", cycleID),
		zap.String("message_id", id))
}
