// Package refresh periodically re-imports ICS feeds and re-warms the
// snapshot cache.
package refresh

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"dayplan/internal/ics"
	appLog "dayplan/internal/log"
	"dayplan/internal/store"
)

// FeedImporter imports one remote feed.
type FeedImporter interface {
	ImportFeed(ctx context.Context, feed ics.Feed) (ics.ImportStats, error)
}

// Refresher runs one refresh pass on a cron schedule.
type Refresher struct {
	feeds    []ics.Feed
	importer FeedImporter
	cache    *store.Cache

	mu sync.Mutex
}

// New returns a Refresher. importer may be nil when no feeds are
// configured.
func New(feeds []ics.Feed, importer FeedImporter, cache *store.Cache) *Refresher {
	return &Refresher{feeds: feeds, importer: importer, cache: cache}
}

// Run performs one pass:
//  1. import every feed (a failing feed is logged and skipped)
//  2. drop every snapshot
//  3. reload the owners that had snapshots, plus the feed owners
//
// Concurrent calls are serialized.
func (r *Refresher) Run(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owners := make(map[string]bool)
	for _, o := range r.cache.Owners() {
		owners[o] = true
	}

	var failed int
	for _, feed := range r.feeds {
		if r.importer == nil {
			break
		}
		if _, err := r.importer.ImportFeed(ctx, feed); err != nil {
			failed++
			appLog.Error("feed refresh failed", err, "feed", feed.ID)
			continue
		}
		owners[feed.Owner] = true
	}

	r.cache.Reset()
	for owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, errs := r.cache.Sources(ctx, owner); len(errs) > 0 {
			appLog.Warn("cache re-warm incomplete", "owner", owner, "errors", len(errs))
		}
	}

	appLog.Info("refresh complete", "feeds", len(r.feeds), "failed", failed, "owners", len(owners))
	if failed > 0 {
		return fmt.Errorf("refresh: %d of %d feeds failed", failed, len(r.feeds))
	}
	return nil
}

// Start schedules Run on schedule (standard 5-field cron syntax or @every
// descriptors) until ctx is cancelled. Overlapping runs are skipped.
func (r *Refresher) Start(ctx context.Context, schedule string) (*cron.Cron, error) {
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))

	if _, err := c.AddFunc(schedule, func() {
		if err := r.Run(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	appLog.Info("refresh scheduled", "schedule", schedule)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return c, nil
}

// cronLogger routes cron's logging into internal/log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
