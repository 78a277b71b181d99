package asset

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// ErrMissing is returned (wrapped) when a handle does not reference a live asset.
var ErrMissing = errors.New("asset: missing")

// Handle references an asset of type T stored in an [Assets] arena.
//
// The zero Handle is invalid and never returned by Add.
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero (invalid) handle.
func (h Handle[T]) IsZero() bool {
	return h.generation == 0
}

// Index returns the slot index of the handle.
func (h Handle[T]) Index() uint32 {
	return h.index
}

// Generation returns the slot generation the handle was issued for.
func (h Handle[T]) Generation() uint32 {
	return h.generation
}

// String formats the handle as index:generation.
func (h Handle[T]) String() string {
	if h.IsZero() {
		return "nil"
	}
	return fmt.Sprintf("%d:%d", h.index, h.generation)
}

// EventKind is the kind of change recorded for an asset.
type EventKind uint8

// Event kinds.
const (
	// EventCreated is recorded by Add.
	EventCreated EventKind = iota

	// EventModified is recorded by Set.
	EventModified

	// EventRemoved is recorded by Remove.
	EventRemoved
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return fmt.Sprintf("EventKind(%d)", k)
	}
}

// Event describes a change to one asset.
type Event[T any] struct {
	Kind   EventKind
	Handle Handle[T]
}

// slot holds one asset and the generation currently issued for it.
type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Assets is a generational arena of assets of type T.
type Assets[T any] struct {
	slots  []slot[T]
	free   []uint32
	count  int
	events []Event[T]
}

// New creates an empty asset arena.
func New[T any]() *Assets[T] {
	return &Assets[T]{}
}

// Add stores v and returns a fresh handle to it.
func (a *Assets[T]) Add(v T) Handle[T] {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		// Slot count is bounded by memory long before it reaches 2^32.
		i, err := safecast.Conv[uint32](len(a.slots) - 1)
		if err != nil {
			panic(fmt.Sprintf("asset: slot index overflow: %v", err))
		}
		idx = i
	}

	s := &a.slots[idx]
	s.generation++
	if s.generation == 0 {
		// Skip the reserved zero generation on wrap-around.
		s.generation = 1
	}
	s.value = v
	s.live = true
	a.count++

	h := Handle[T]{index: idx, generation: s.generation}
	a.events = append(a.events, Event[T]{Kind: EventCreated, Handle: h})
	return h
}

// lookup returns the live slot referenced by h, or nil.
func (a *Assets[T]) lookup(h Handle[T]) *slot[T] {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil
	}
	return s
}

// Get returns a pointer to the asset referenced by h.
//
// The pointer stays valid until the asset is removed or replaced with Set.
// Returns (nil, false) for stale or zero handles.
func (a *Assets[T]) Get(h Handle[T]) (*T, bool) {
	s := a.lookup(h)
	if s == nil {
		return nil, false
	}
	return &s.value, true
}

// MustGet returns the asset referenced by h or an error wrapping [ErrMissing].
func (a *Assets[T]) MustGet(h Handle[T]) (*T, error) {
	v, ok := a.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: handle %s", ErrMissing, h)
	}
	return v, nil
}

// Contains reports whether h references a live asset.
func (a *Assets[T]) Contains(h Handle[T]) bool {
	return a.lookup(h) != nil
}

// Set replaces the asset referenced by h and records a Modified event.
// Returns false if h is stale.
func (a *Assets[T]) Set(h Handle[T], v T) bool {
	s := a.lookup(h)
	if s == nil {
		return false
	}
	s.value = v
	a.events = append(a.events, Event[T]{Kind: EventModified, Handle: h})
	return true
}

// Remove deletes the asset referenced by h and returns it.
//
// The slot generation is bumped on reuse, so h and all copies of it are
// stale afterwards.
func (a *Assets[T]) Remove(h Handle[T]) (T, bool) {
	s := a.lookup(h)
	if s == nil {
		var zero T
		return zero, false
	}
	v := s.value
	var zero T
	s.value = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.count--
	a.events = append(a.events, Event[T]{Kind: EventRemoved, Handle: h})
	return v, true
}

// Len returns the number of live assets.
func (a *Assets[T]) Len() int {
	return a.count
}

// Handles returns a snapshot of the handles of all live assets in slot order.
func (a *Assets[T]) Handles() []Handle[T] {
	out := make([]Handle[T], 0, a.count)
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		//nolint:gosec // G115: index fits, it was narrowed by Add
		out = append(out, Handle[T]{index: uint32(i), generation: s.generation})
	}
	return out
}

// DrainEvents returns the events recorded since the previous call and
// clears the queue.
func (a *Assets[T]) DrainEvents() []Event[T] {
	events := a.events
	a.events = nil
	return events
}
