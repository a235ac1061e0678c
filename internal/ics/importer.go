package ics

import (
	"context"
	"fmt"
	"os"

	appLog "dayplan/internal/log"
	"dayplan/internal/model"
)

// Upserter is the write side of the store used by imports.
type Upserter interface {
	Upsert(ctx context.Context, e *model.Entry) (created bool, err error)
}

// ImportStats summarizes one import.
type ImportStats struct {
	Created int
	Updated int
	Failed  int
}

// Importer writes parsed ICS entries into the store.
type Importer struct {
	store   Upserter
	fetcher *Fetcher
}

// NewImporter returns an Importer. fetcher may be nil when only files and
// raw bodies are imported.
func NewImporter(store Upserter, fetcher *Fetcher) *Importer {
	return &Importer{store: store, fetcher: fetcher}
}

// Import parses body and upserts every entry for owner.
func (im *Importer) Import(ctx context.Context, owner string, body []byte) (ImportStats, error) {
	var stats ImportStats

	entries, err := ParseEntries(owner, body)
	if err != nil {
		return stats, fmt.Errorf("parse ics: %w", err)
	}
	for i := range entries {
		created, err := im.store.Upsert(ctx, &entries[i])
		switch {
		case err != nil:
			stats.Failed++
			appLog.Error("ics import entry failed", err, "owner", owner, "id", entries[i].ID)
		case created:
			stats.Created++
		default:
			stats.Updated++
		}
	}
	return stats, nil
}

// ImportFile imports the ICS file at path.
func (im *Importer) ImportFile(ctx context.Context, owner, path string) (ImportStats, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return ImportStats{}, fmt.Errorf("read ics file: %w", err)
	}
	return im.Import(ctx, owner, body)
}

// ImportFeed fetches feed (falling back to its cached body) and imports it
// into feed.Owner.
func (im *Importer) ImportFeed(ctx context.Context, feed Feed) (ImportStats, error) {
	if im.fetcher == nil {
		return ImportStats{}, fmt.Errorf("import feed %s: no fetcher configured", feed.ID)
	}
	res, err := im.fetcher.Fetch(ctx, feed)
	if err != nil {
		return ImportStats{}, fmt.Errorf("fetch feed %s: %w", feed.ID, err)
	}
	stats, err := im.Import(ctx, feed.Owner, res.Body)
	if err != nil {
		return stats, err
	}
	appLog.Info("feed imported",
		"feed", feed.ID,
		"owner", feed.Owner,
		"from_cache", res.FromCache,
		"created", stats.Created,
		"updated", stats.Updated,
		"failed", stats.Failed,
	)
	return stats, nil
}
