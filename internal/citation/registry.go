package citation

import (
	"sort"
	"sync"
)

// DefaultPageID identifies citations made outside any known page.
const DefaultPageID = "default"

type keySet map[string]map[string]struct{}

func (ks keySet) add(page, key string) {
	set, ok := ks[page]
	if !ok {
		set = make(map[string]struct{})
		ks[page] = set
	}
	set[key] = struct{}{}
}

func (ks keySet) sorted(page string) []string {
	set := ks[page]
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Registry records which citation keys each page used. Sets only grow
// during a build; Clear and ClearPage reset them between builds.
// Keys that failed to resolve are kept apart and never reach a
// bibliography.
type Registry struct {
	mu      sync.Mutex
	pages   keySet
	missing keySet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(keySet), missing: make(keySet)}
}

// Use marks key as cited on page.
func (r *Registry) Use(page, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages.add(page, key)
}

// Miss notes that page cited key but it did not resolve.
func (r *Registry) Miss(page, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missing.add(page, key)
}

// Missing returns the unresolved keys cited on page, sorted.
func (r *Registry) Missing(page string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.missing.sorted(page)
}

// Keys returns the keys cited on page in lexicographic order.
func (r *Registry) Keys(page string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pages.sorted(page)
}

// ClearPage forgets the citations of a single page, e.g. before it is
// rendered again.
func (r *Registry) ClearPage(page string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pages, page)
	delete(r.missing, page)
}

// Clear forgets all recorded citations.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = make(keySet)
	r.missing = make(keySet)
}
