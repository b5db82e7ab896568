// Package repository defines the sample and profile store used by the
// service, with an in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
)

// Store provides read/write access to user samples and profiles.
type Store interface {
	// UpsertSample stores s for userID, replacing any sample on the same day.
	// It returns the series as it was before the write.
	UpsertSample(ctx context.Context, userID string, s model.MetricSample) ([]model.MetricSample, error)
	// DeleteSample removes the sample on day. It returns the series as it was
	// before the delete, or ErrNotFound.
	DeleteSample(ctx context.Context, userID string, day time.Time) ([]model.MetricSample, error)
	// Series returns a copy of the user's samples sorted ascending by day.
	// Unknown users have an empty series.
	Series(ctx context.Context, userID string) ([]model.MetricSample, error)

	// PutProfile stores p, replacing any previous profile.
	PutProfile(ctx context.Context, p model.Profile) error
	// Profile returns the stored profile or ErrNotFound.
	Profile(ctx context.Context, userID string) (model.Profile, error)

	// Count returns the number of users with samples or a profile.
	Count(ctx context.Context) int
}
