package cache

import (
	"context"
	"sync"
	"sync/atomic"
)

// group holds every entry of one fingerprint. Groups form a doubly linked
// list in insertion order; head is the oldest.
type group struct {
	fp         Fingerprint
	entries    map[string]Entry
	prev, next *group
}

// Memory implements Cache in process memory with FIFO eviction of whole
// fingerprint groups.
type Memory struct {
	mu         sync.RWMutex
	groups     map[Fingerprint]*group
	head, tail *group
	maxEntries int
	size       atomic.Int64
	onEvict    func(n int)
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an in-memory cache with configuration options.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		groups:     make(map[Fingerprint]*group),
		maxEntries: defaultMaxEntries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[key.Series]
	if !ok {
		return Entry{}, false, nil
	}
	e, ok := g.entries[key.Query]
	return e, ok, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key Key, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[key.Series]
	if ok {
		if _, exists := g.entries[key.Query]; exists {
			g.entries[key.Query] = e
			return nil
		}
	}

	if m.maxEntries > 0 {
		for int(m.size.Load()) >= m.maxEntries && m.head != nil {
			if m.head == g && len(m.groups) == 1 {
				// A single oversized group is trimmed by dropping it whole.
				m.evict(g)
				g, ok = nil, false
				break
			}
			if m.head == g {
				// Never evict the group being written to; move it to the back.
				m.unlink(g)
				m.pushBack(g)
				continue
			}
			m.evict(m.head)
		}
	}

	if !ok {
		g = &group{fp: key.Series, entries: make(map[string]Entry)}
		m.groups[key.Series] = g
		m.pushBack(g)
	}
	g.entries[key.Query] = e
	m.size.Add(1)
	return nil
}

// Invalidate implements Cache.
func (m *Memory) Invalidate(_ context.Context, fp Fingerprint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.groups[fp]; ok {
		m.remove(g)
	}
	return nil
}

// Purge implements Cache.
func (m *Memory) Purge(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.groups = make(map[Fingerprint]*group)
	m.head, m.tail = nil, nil
	m.size.Store(0)
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int64 {
	return m.size.Load()
}

// evict drops g and reports it. Must be called with m.mu held.
func (m *Memory) evict(g *group) {
	n := len(g.entries)
	m.remove(g)
	if m.onEvict != nil {
		m.onEvict(n)
	}
}

// remove drops g from the map and list. Must be called with m.mu held.
func (m *Memory) remove(g *group) {
	delete(m.groups, g.fp)
	m.unlink(g)
	m.size.Add(-int64(len(g.entries)))
}

func (m *Memory) pushBack(g *group) {
	g.prev, g.next = m.tail, nil
	if m.tail != nil {
		m.tail.next = g
	} else {
		m.head = g
	}
	m.tail = g
}

func (m *Memory) unlink(g *group) {
	if g.prev != nil {
		g.prev.next = g.next
	} else {
		m.head = g.next
	}
	if g.next != nil {
		g.next.prev = g.prev
	} else {
		m.tail = g.prev
	}
	g.prev, g.next = nil, nil
}
