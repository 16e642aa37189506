// Package live folds the change feed into the per-surface aggregates shown to
// viewers and on the display: score averages, floating overlays, the chat feed
// and the question board. Every fold is keyed on event id and independent of
// arrival order, so duplicate or reordered delivery leaves results unchanged.
package live

import "sync"

// Cell holds the latest known review target. Long-lived callbacks read the
// cell at evaluation time instead of capturing the target when they start.
type Cell struct {
	mu         sync.RWMutex
	name       string
	set        bool
	generation uint64
}

// Load returns the current target and whether one is set.
func (c *Cell) Load() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name, c.set
}

// Store sets the target. It returns true when the value changed.
func (c *Cell) Store(name string) bool {
	if name == "" {
		return c.Clear()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set && c.name == name {
		return false
	}
	c.name, c.set = name, true
	c.generation++
	return true
}

// Clear unsets the target. It returns true when a target was set.
func (c *Cell) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return false
	}
	c.name, c.set = "", false
	c.generation++
	return true
}

// Matches reports whether target is the current target.
func (c *Cell) Matches(target string) bool {
	name, ok := c.Load()
	return ok && name == target
}

// Generation increases on every change of target.
func (c *Cell) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}
