package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ghostpost/ghostpost/internal/config"
	"github.com/ghostpost/ghostpost/internal/poster"
	"github.com/ghostpost/ghostpost/internal/queue"
)

// Ledger records which (platform, image) pairs have been posted
type Ledger interface {
	AlreadyPosted(platform, image string) (bool, error)
	MarkPosted(platform, account, image string) error
}

// Driver runs posting cycles over the queue
type Driver struct {
	QueuePath string
	Ledger    Ledger
	Invoker   Invoker
	Platforms map[string]config.PlatformConfig
	MinDelay  time.Duration
	MaxDelay  time.Duration
	Log       logrus.FieldLogger

	// DryRun leaves the ledger untouched: posters stop before publishing, so
	// a clean exit does not mean the image went out
	DryRun bool

	// Sleep pauses between posts; poster.Sleep when nil
	Sleep func(context.Context, time.Duration) error
}

// CycleStats summarises one pass over the queue
type CycleStats struct {
	ID           string
	Rows         int
	InvalidRows  int
	Posted       int
	DryRuns      int
	Failed       int
	AlreadyDone  int
	Unconfigured int
}

// RunCycle reads the queue once and posts every (row, platform) pair that the
// ledger has not seen yet. A pair is recorded only when its poster succeeds, so
// failures are retried on the next cycle. Pairs that are skipped do not pace.
func (d *Driver) RunCycle(ctx context.Context) (CycleStats, error) {
	stats := CycleStats{ID: uuid.NewString()}
	log := d.Log.WithField("cycle", stats.ID)

	entries, rowErrs, err := queue.Read(d.QueuePath)
	if err != nil {
		return stats, err
	}
	for _, re := range rowErrs {
		log.WithError(re).Warn("Skipping invalid queue row")
	}
	stats.Rows = len(entries)
	stats.InvalidRows = len(rowErrs)
	log.WithFields(logrus.Fields{"queue": d.QueuePath, "rows": stats.Rows}).Info("Cycle started")

	sleep := d.Sleep
	if sleep == nil {
		sleep = poster.Sleep
	}

	for _, entry := range entries {
		for _, platform := range entry.Platforms() {
			plog := log.WithFields(logrus.Fields{"platform": platform, "image": entry.ImagePath})

			done, err := d.Ledger.AlreadyPosted(platform, entry.ImagePath)
			if err != nil {
				return stats, fmt.Errorf("failed to query ledger: %w", err)
			}
			if done {
				plog.Debug("Already posted, skipping")
				stats.AlreadyDone++
				continue
			}

			pc, ok := d.Platforms[platform]
			if !ok {
				plog.Warn("No poster configured for platform, skipping")
				stats.Unconfigured++
				continue
			}

			err = d.Invoker.Invoke(ctx, platform, entry)
			switch {
			case errors.Is(err, ErrNoPoster):
				plog.Warn("No poster configured for platform, skipping")
				stats.Unconfigured++
				continue
			case err != nil:
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				plog.WithError(err).Error("Post failed, will retry next cycle")
				stats.Failed++
			case d.DryRun:
				plog.Info("Dry run finished, not recording")
				stats.DryRuns++
			default:
				if err := d.Ledger.MarkPosted(platform, pc.Account, entry.ImagePath); err != nil {
					return stats, err
				}
				plog.WithField("account", pc.Account).Info("Posted")
				stats.Posted++
			}

			pause := poster.RandomDuration(d.MinDelay, d.MaxDelay)
			plog.WithField("pause", pause.Round(time.Second)).Debug("Pacing before next post")
			if err := sleep(ctx, pause); err != nil {
				return stats, err
			}
		}
	}

	log.WithFields(logrus.Fields{
		"posted":       stats.Posted,
		"dry_runs":     stats.DryRuns,
		"failed":       stats.Failed,
		"already_done": stats.AlreadyDone,
		"unconfigured": stats.Unconfigured,
	}).Info("Cycle finished")
	return stats, nil
}
