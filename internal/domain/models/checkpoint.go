package models

import "time"

// IngestionCheckpoint tracks, per data source, the most recently merged
// extract. It is advanced only after both the upsert and the covered-day
// recomputation succeed, so a crash mid-merge leads to a safe re-run on the
// next schedule tick rather than a skipped day.
type IngestionCheckpoint struct {
	Source        string
	ReferenceCode string
	CoverageStart time.Time
	CoverageEnd   time.Time
	MergedAt      time.Time
}
