package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxSamplesPerUser caps each user's series; the oldest samples are
// dropped first. Zero or negative means unbounded.
func WithMaxSamplesPerUser(n int) Option {
	return func(s *MemoryStore) {
		s.maxSamples = n
	}
}
