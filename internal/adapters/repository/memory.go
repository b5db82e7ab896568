package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/pkg/metrics"
)

const maxBodyFatPercent = 100

type user struct {
	samples []model.MetricSample // sorted by day, one per day
	profile *model.Profile
}

// MemoryStore is an in-memory Store. Writes are last-write-wins per
// (user, day).
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*user
	maxSamples int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{users: make(map[string]*user)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validUser(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidUser
	}
	return nil
}

// ValidateSample checks that s carries at least one plausible value.
func ValidateSample(s model.MetricSample) error { //nolint:gocritic // hugeParam: samples are small value types
	if s.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidSample)
	}
	if s.WeightKg == nil && s.BodyFatPercent == nil {
		return fmt.Errorf("%w: no weight or body fat", ErrInvalidSample)
	}
	if w := s.WeightKg; w != nil && (math.IsNaN(*w) || math.IsInf(*w, 0) || *w <= 0) {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidSample)
	}
	if bf := s.BodyFatPercent; bf != nil && (math.IsNaN(*bf) || *bf < 0 || *bf > maxBodyFatPercent) {
		return fmt.Errorf("%w: body fat must be in [0, 100]", ErrInvalidSample)
	}
	return nil
}

// ValidateProfile checks that p has a user and plausible attributes.
func ValidateProfile(p model.Profile) error {
	if err := validUser(p.UserID); err != nil {
		return err
	}
	if !p.Sex.Valid() {
		return fmt.Errorf("%w: sex must be male or female", ErrInvalidProfile)
	}
	if p.BirthYear <= 0 {
		return fmt.Errorf("%w: birth year must be positive", ErrInvalidProfile)
	}
	if math.IsNaN(p.HeightCm) || p.HeightCm <= 0 {
		return fmt.Errorf("%w: height must be positive", ErrInvalidProfile)
	}
	return nil
}

// search returns the index of the first sample on or after day.
func search(samples []model.MetricSample, day time.Time) int {
	return sort.Search(len(samples), func(i int) bool {
		return !samples[i].Date.Before(day)
	})
}

func clone(samples []model.MetricSample) []model.MetricSample {
	out := make([]model.MetricSample, len(samples))
	copy(out, samples)
	return out
}

// UpsertSample implements Store.
func (s *MemoryStore) UpsertSample(_ context.Context, userID string, sample model.MetricSample) ([]model.MetricSample, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	if err := ValidateSample(sample); err != nil {
		return nil, err
	}
	sample.Date = model.Day(sample.Date)
	if sample.Source.Kind == "" {
		sample.Source.Kind = model.SourceManual
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = &user{}
		s.users[userID] = u
		metrics.UpdateTrackedUsers(len(s.users))
	}
	before := clone(u.samples)

	i := search(u.samples, sample.Date)
	if i < len(u.samples) && u.samples[i].Date.Equal(sample.Date) {
		u.samples[i] = sample
	} else {
		u.samples = append(u.samples, model.MetricSample{})
		copy(u.samples[i+1:], u.samples[i:])
		u.samples[i] = sample
	}
	if s.maxSamples > 0 && len(u.samples) > s.maxSamples {
		u.samples = append(u.samples[:0], u.samples[len(u.samples)-s.maxSamples:]...)
	}
	metrics.RecordSampleRecorded()
	return before, nil
}

// DeleteSample implements Store.
func (s *MemoryStore) DeleteSample(_ context.Context, userID string, day time.Time) ([]model.MetricSample, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	day = model.Day(day)

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("sample %s for %s: %w", day.Format(model.DayLayout), userID, ErrNotFound)
	}
	i := search(u.samples, day)
	if i == len(u.samples) || !u.samples[i].Date.Equal(day) {
		return nil, fmt.Errorf("sample %s for %s: %w", day.Format(model.DayLayout), userID, ErrNotFound)
	}
	before := clone(u.samples)
	u.samples = append(u.samples[:i], u.samples[i+1:]...)
	metrics.RecordSampleDeleted()
	return before, nil
}

// Series implements Store.
func (s *MemoryStore) Series(_ context.Context, userID string) ([]model.MetricSample, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return []model.MetricSample{}, nil
	}
	return clone(u.samples), nil
}

// PutProfile implements Store.
func (s *MemoryStore) PutProfile(_ context.Context, p model.Profile) error {
	if err := ValidateProfile(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[p.UserID]
	if !ok {
		u = &user{}
		s.users[p.UserID] = u
		metrics.UpdateTrackedUsers(len(s.users))
	}
	u.profile = &p
	return nil
}

// Profile implements Store.
func (s *MemoryStore) Profile(_ context.Context, userID string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok || u.profile == nil {
		return model.Profile{}, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	return *u.profile, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
