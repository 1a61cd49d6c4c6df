package controller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shelterscout/petharvester/internal/harvest"
	"github.com/shelterscout/petharvester/internal/metrics"
)

// runHarvest walks the page range from the checkpoint cursor. It returns
// done=false without error when the loop is stopped or the restart
// deadline passes; the saved checkpoint carries the position either way.
func (c *Controller) runHarvest(ctx context.Context, cp harvest.Checkpoint, deadline time.Time) (bool, error) {
	c.status.SetPhase(harvest.PhaseHarvesting)
	metrics.SetPhase(string(harvest.PhaseHarvesting))

	// Keys fetched in this run; a key listed twice is fetched once.
	seen := make(map[string]struct{})

	for page := cp.Page; page <= c.cfg.MaxPage; page++ {
		if ctx.Err() != nil {
			return false, nil
		}
		if c.clock.Now().After(deadline) {
			c.logger.Info("restart interval reached, recycling loop", zap.Int("page", page))
			return false, nil
		}
		metrics.SetCurrentPage(page)

		categories := c.cfg.Categories
		if page == cp.Page {
			categories = c.remainingCategories(cp.Category)
		}

		for _, category := range categories {
			if ctx.Err() != nil {
				return false, nil
			}
			c.status.SetCursor(page, category)

			if err := c.harvestCategory(ctx, page, category, seen); err != nil {
				return false, err
			}

			next, ok := c.nextCursor(page, category)
			if !ok {
				// Final category of the final page; the cycle moves on
				// to verification, which saves its own checkpoints.
				continue
			}
			next.SavedAt = c.clock.Now()
			if err := c.checkpoints.Save(ctx, next); err != nil {
				return false, fmt.Errorf("save harvest checkpoint: %w", err)
			}
		}
	}
	return true, nil
}

// remainingCategories returns the scan-order suffix starting at from,
// inclusive. An unknown category scans the full list.
func (c *Controller) remainingCategories(from harvest.Category) []harvest.Category {
	for i, cat := range c.cfg.Categories {
		if cat == from {
			return c.cfg.Categories[i:]
		}
	}
	return c.cfg.Categories
}

// nextCursor returns the position after finishing category on page, or
// ok=false when that was the final category of the final page.
func (c *Controller) nextCursor(page int, category harvest.Category) (harvest.Checkpoint, bool) {
	for i, cat := range c.cfg.Categories {
		if cat != category {
			continue
		}
		if i+1 < len(c.cfg.Categories) {
			return harvest.Checkpoint{
				Phase:    harvest.PhaseHarvesting,
				Page:     page,
				Category: c.cfg.Categories[i+1],
			}, true
		}
		break
	}
	if page >= c.cfg.MaxPage {
		return harvest.Checkpoint{}, false
	}
	return harvest.Checkpoint{
		Phase:    harvest.PhaseHarvesting,
		Page:     page + 1,
		Category: c.cfg.Categories[0],
	}, true
}

// harvestCategory lists one page of one category and merges every new
// item into the record store. Listing and per-item failures degrade to
// skips; only persistence failures escape.
func (c *Controller) harvestCategory(ctx context.Context, page int, category harvest.Category, seen map[string]struct{}) error {
	keys, err := c.listWithRetry(ctx, page, category)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("page listing failed after retries, treating as empty",
			zap.Int("page", page),
			zap.String("category", string(category)),
			zap.Error(err))
		metrics.ObservePageList("error")
		return nil
	}
	if len(keys) == 0 {
		metrics.ObservePageList("empty")
		return nil
	}
	metrics.ObservePageList("ok")

	for _, key := range keys {
		if ctx.Err() != nil {
			return nil
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		known, err := c.index.Contains(ctx, key)
		if err != nil {
			return err
		}
		if known {
			metrics.ObserveItem(string(category), "duplicate")
			continue
		}

		start := c.clock.Now()
		record, err := c.fetcher.FetchItem(ctx, key)
		metrics.ObserveItemFetch(c.clock.Now().Sub(start))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("item fetch failed, skipping",
				zap.String("key", key),
				zap.Error(err))
			metrics.ObserveItem(string(category), "failed")
			continue
		}

		if err := c.records.Upsert(ctx, record); err != nil {
			return fmt.Errorf("store record %s: %w", key, err)
		}
		c.index.Add(key)
		c.status.IncHarvested()
		c.rate.Mark(c.clock.Now())
		metrics.ObserveItem(string(category), "harvested")

		c.pause(ctx, c.cfg.ItemDelay)
	}
	return nil
}

// listWithRetry attempts the page listing up to the configured number of
// times with a fixed delay between attempts.
func (c *Controller) listWithRetry(ctx context.Context, page int, category harvest.Category) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		keys, err := c.lister.ListPage(ctx, page, category)
		if err == nil {
			return keys, nil
		}
		lastErr = err
		c.logger.Debug("page listing attempt failed",
			zap.Int("page", page),
			zap.String("category", string(category)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < c.cfg.RetryAttempts {
			c.pause(ctx, c.cfg.RetryDelay)
		}
	}
	return nil, lastErr
}
