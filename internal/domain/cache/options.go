package cache

// Default cache configuration constants.
const defaultMaxEntries = 50000

// Option applies a configuration option to the in-memory cache.
type Option func(*Memory)

// WithMaxEntries bounds the number of entries kept. When full, the oldest
// fingerprint group is evicted. Zero or negative means unbounded.
func WithMaxEntries(n int) Option {
	return func(m *Memory) {
		m.maxEntries = n
	}
}

// WithEvictHook registers fn to be called with the number of entries dropped
// by each eviction.
func WithEvictHook(fn func(n int)) Option {
	return func(m *Memory) {
		m.onEvict = fn
	}
}
