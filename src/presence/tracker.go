package presence

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Tracker holds the broker's latest view of who is online.
// Every broadcast replaces the set; nothing is carried over.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{online: make(map[string]struct{})}
}

// Replace swaps the whole set for identities. Duplicates and empty
// names are dropped.
func (t *Tracker) Replace(identities []string) {
	next := make(map[string]struct{}, len(identities))
	for _, id := range lo.Compact(lo.Uniq(identities)) {
		next[id] = struct{}{}
	}

	t.mu.Lock()
	t.online = next
	t.mu.Unlock()
}

// Clear empties the set.
func (t *Tracker) Clear() {
	t.mu.Lock()
	t.online = make(map[string]struct{})
	t.mu.Unlock()
}

// Online returns the current set, sorted.
func (t *Tracker) Online() []string {
	t.mu.RLock()
	ids := lo.Keys(t.online)
	t.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Contains reports whether identity is in the current set.
func (t *Tracker) Contains(identity string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[identity]
	return ok
}

// Count returns the number of online identities.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.online)
}
