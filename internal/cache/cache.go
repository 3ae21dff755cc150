// Package cache holds the most recent usage snapshot shared by the refresh
// scheduler and the menu host.
package cache

import (
	"sync"
	"time"

	"github.com/janekbaraniewski/usagetray/internal/core"
)

// Snapshot is a point-in-time copy of the cache. Usage is nil and UpdatedAt
// is zero until the first successful fetch. Cycles counts finished refresh
// cycles, successful or not.
type Snapshot struct {
	Usage     map[core.Period]core.AggregatedUsage
	UpdatedAt time.Time
	Available bool
	Selected  core.Period
	LastError string
	Cycles    uint64
}

// HasData reports whether at least one fetch has succeeded.
func (s Snapshot) HasData() bool {
	return s.Usage != nil
}

// Current returns the usage of the selected period, or nil if nothing has
// been fetched for it.
func (s Snapshot) Current() core.AggregatedUsage {
	if s.Usage == nil {
		return nil
	}
	return s.Usage[s.Selected]
}

// Cache guards a Snapshot. The lock is only held to copy in or out; callers
// never do I/O under it.
type Cache struct {
	mu   sync.RWMutex
	snap Snapshot
}

func New(selected core.Period) *Cache {
	if !selected.Valid() {
		selected = core.PeriodToday
	}
	return &Cache{snap: Snapshot{Available: true, Selected: selected}}
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSnapshot(c.snap)
}

func (c *Cache) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Usage != nil
}

func (c *Cache) Selected() core.Period {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Selected
}

// Select changes the period the host shows. Unknown periods are ignored.
func (c *Cache) Select(p core.Period) bool {
	if !p.Valid() {
		return false
	}
	c.mu.Lock()
	c.snap.Selected = p
	c.mu.Unlock()
	return true
}

// Commit replaces all cached usage in one step and marks the tool available.
func (c *Cache) Commit(usage map[core.Period]core.AggregatedUsage, at time.Time) {
	next := cloneUsage(usage)
	if next == nil {
		next = make(map[core.Period]core.AggregatedUsage)
	}

	c.mu.Lock()
	c.snap.Usage = next
	c.snap.UpdatedAt = at
	c.snap.Available = true
	c.snap.LastError = ""
	c.snap.Cycles++
	c.mu.Unlock()
}

// Fail records a failed refresh. Previously cached usage is kept.
func (c *Cache) Fail(err error, available bool) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	c.mu.Lock()
	c.snap.Available = available
	c.snap.LastError = msg
	c.snap.Cycles++
	c.mu.Unlock()
}

func cloneSnapshot(s Snapshot) Snapshot {
	s.Usage = cloneUsage(s.Usage)
	return s
}

func cloneUsage(in map[core.Period]core.AggregatedUsage) map[core.Period]core.AggregatedUsage {
	if in == nil {
		return nil
	}
	out := make(map[core.Period]core.AggregatedUsage, len(in))
	for p, u := range in {
		out[p] = u.Clone()
	}
	return out
}
