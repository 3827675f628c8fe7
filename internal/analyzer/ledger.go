package analyzer

import "sync"

// ResourceLedger maps resource URL to its captured network metadata for one
// analysis. Writes arrive from concurrent capture callbacks, so every
// operation takes the mutex. Insertion order is preserved; a later entry for
// the same URL replaces the earlier one in place (last-write-wins, keeping
// the first-seen position).
type ResourceLedger struct {
	mu      sync.Mutex
	entries map[string]Resource
	order   []string
}

func NewResourceLedger() *ResourceLedger {
	return &ResourceLedger{entries: make(map[string]Resource)}
}

// Put inserts or replaces the entry for res.URL.
func (l *ResourceLedger) Put(res Resource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, seen := l.entries[res.URL]; !seen {
		l.order = append(l.order, res.URL)
	}
	l.entries[res.URL] = res
}

// Get returns the entry for url, if present.
func (l *ResourceLedger) Get(url string) (Resource, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res, ok := l.entries[url]
	return res, ok
}

// Len returns the number of distinct URLs captured.
func (l *ResourceLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns the resources in first-seen order. The returned slice is
// a copy; the ledger itself stays untouched.
func (l *ResourceLedger) Snapshot() []Resource {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Resource, 0, len(l.order))
	for _, url := range l.order {
		out = append(out, l.entries[url])
	}
	return out
}
