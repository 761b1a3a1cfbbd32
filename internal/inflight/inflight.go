package inflight

import (
	"sort"
	"sync"
)

// Kind names an operation that may be in flight for a subject.
type Kind string

const (
	KindReview Kind = "review"
	KindCheck  Kind = "check"
)

// Key identifies one in-flight operation, e.g. the review of a file path.
type Key struct {
	Subject string
	Kind    Kind
}

// Registry tracks which keys currently have an operation in flight.
// The zero value is ready to use.
type Registry struct {
	mu     sync.Mutex
	active map[Key]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[Key]struct{})}
}

// TryAcquire marks key as in flight. It reports false, with a nil release,
// when key is already held. The release func may be called any number of
// times; only the first call clears the key.
func (r *Registry) TryAcquire(key Key) (release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		r.active = make(map[Key]struct{})
	}
	if _, held := r.active[key]; held {
		return nil, false
	}
	r.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.active, key)
			r.mu.Unlock()
		})
	}, true
}

// Active reports whether key is in flight.
func (r *Registry) Active(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[key]
	return ok
}

// Len returns the number of keys in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Snapshot returns the keys in flight ordered by subject, then kind.
func (r *Registry) Snapshot() []Key {
	r.mu.Lock()
	keys := make([]Key, 0, len(r.active))
	for k := range r.active {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Subject != keys[j].Subject {
			return keys[i].Subject < keys[j].Subject
		}
		return keys[i].Kind < keys[j].Kind
	})
	return keys
}
