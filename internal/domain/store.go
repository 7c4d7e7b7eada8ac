package domain

import (
	"context"
	"time"
)

// ReadingStore persists readings and serves them back in time order.
type ReadingStore interface {
	// SaveReading stores a reading, replacing any reading with the same timestamp.
	SaveReading(ctx context.Context, r Reading) error

	// PreviousReading returns the latest reading strictly older than
	// beforeMillis, or ErrReadingNotFound.
	PreviousReading(ctx context.Context, beforeMillis int64) (Reading, error)

	// FetchRecent returns at most n readings, newest last.
	FetchRecent(ctx context.Context, n int) ([]Reading, error)

	// DeleteReadingsBefore removes readings older than cutoff and reports how many.
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertStore persists authority alerts.
type AlertStore interface {
	SaveAlert(ctx context.Context, a Alert) error

	// ListAlerts returns at most limit alerts, newest first.
	ListAlerts(ctx context.Context, limit int) ([]Alert, error)
}
