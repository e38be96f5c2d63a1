// Package cache holds process-local, best-effort state shared by crawl cycles.
package cache

import (
	"container/list"
	"sync"

	"github.com/rs/zerolog/log"
)

// RunCounter counts how many times each ad id was seen by this process.
//
// The counter is bounded: once it holds more than capacity ids, the id that
// was inserted first is evicted (FIFO, re-sightings do not refresh an id).
// Counts are lost on restart; the catalog keeps the authoritative run count.
type RunCounter struct {
	mu       sync.Mutex
	counts   map[string]*list.Element
	order    *list.List // insertion order, front = oldest
	capacity int
	evicted  uint64
}

type counterEntry struct {
	id    string
	count int
}

// NewRunCounter creates a counter holding at most capacity ids
func NewRunCounter(capacity int) *RunCounter {
	if capacity <= 0 {
		capacity = 500
	}
	return &RunCounter{
		counts:   make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
	}
}

// Increment bumps the count for id and returns the new value
func (rc *RunCounter) Increment(id string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if element, ok := rc.counts[id]; ok {
		entry := element.Value.(*counterEntry)
		entry.count++
		return entry.count
	}

	entry := &counterEntry{id: id, count: 1}
	rc.counts[id] = rc.order.PushBack(entry)

	for rc.order.Len() > rc.capacity {
		rc.evictOldest()
	}
	return entry.count
}

// Get returns the current count for id (0 if unknown or evicted)
func (rc *RunCounter) Get(id string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if element, ok := rc.counts[id]; ok {
		return element.Value.(*counterEntry).count
	}
	return 0
}

// Len returns the number of tracked ids
func (rc *RunCounter) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.order.Len()
}

// Stats returns counter statistics
func (rc *RunCounter) Stats() map[string]interface{} {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	return map[string]interface{}{
		"entries":  rc.order.Len(),
		"capacity": rc.capacity,
		"evicted":  rc.evicted,
	}
}

// evictOldest removes the first inserted id (must be called with lock held)
func (rc *RunCounter) evictOldest() {
	element := rc.order.Front()
	if element == nil {
		return
	}
	entry := element.Value.(*counterEntry)
	rc.order.Remove(element)
	delete(rc.counts, entry.id)
	rc.evicted++

	log.Debug().Str("platform_id", entry.id).Msg("Evicted from run counter")
}
