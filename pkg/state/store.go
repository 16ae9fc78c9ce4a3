// Package state holds the session-wide search term and favorites with
// synchronous change notification, plus the debouncer used for search input.
package state

import (
	"sort"
	"sync"
)

// ChangeKind identifies what a Change is about.
type ChangeKind int

const (
	// ChangeSearch is published after SetSearch.
	ChangeSearch ChangeKind = iota + 1
	// ChangeFavorite is published after ToggleFavorite.
	ChangeFavorite
)

// Change describes one applied mutation.
type Change struct {
	Kind ChangeKind

	// SearchTerm is the new term (ChangeSearch).
	SearchTerm string

	// Name and Favorite describe the toggled entry (ChangeFavorite).
	Name     string
	Favorite bool
}

// Store is the search/favorites state container. The zero value is not
// usable; call NewStore.
type Store struct {
	mu          sync.RWMutex
	searchTerm  string
	favorites   map[string]struct{}
	subscribers map[int]func(Change)
	nextID      int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		favorites:   make(map[string]struct{}),
		subscribers: make(map[int]func(Change)),
	}
}

// SearchTerm returns the current search term.
func (s *Store) SearchTerm() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searchTerm
}

// SetSearch replaces the search term and notifies subscribers. Callers are
// expected to debounce user input before calling it.
func (s *Store) SetSearch(term string) {
	s.mu.Lock()
	s.searchTerm = term
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeSearch, SearchTerm: term})
}

// ToggleFavorite flips the membership of name and returns the new membership.
func (s *Store) ToggleFavorite(name string) bool {
	s.mu.Lock()
	_, present := s.favorites[name]
	if present {
		delete(s.favorites, name)
	} else {
		s.favorites[name] = struct{}{}
	}
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeFavorite, Name: name, Favorite: !present})
	return !present
}

// IsFavorite reports whether name is a favorite.
func (s *Store) IsFavorite(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.favorites[name]
	return ok
}

// Favorites returns the favorite names sorted alphabetically.
func (s *Store) Favorites() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.favorites))
	for name := range s.favorites {
		out = append(out, name)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Subscribe registers fn for every subsequent change. fn runs synchronously
// on the mutating goroutine after the change is applied and should read
// current values from the store rather than cache them. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) publish(change Change) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Change), len(ids))
	for i, id := range ids {
		fns[i] = s.subscribers[id]
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
