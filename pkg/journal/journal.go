// Package journal records the entity transitions of one command.
//
// The journal is the single source of truth for what a command touched: the
// runtime uses it to register or deregister entities at commit, to flip
// creations and deletions on undo, and to tell observers what to refresh.
package journal

import "github.com/aretw0/topoedit/pkg/domain"

// Entry is the transition recorded for one entity.
type Entry[T any] struct {
	ID         domain.ID
	Entity     T
	Transition domain.Transition
}

// Journal is an ordered table of entries keyed by entity id.
// It is not safe for concurrent use; a command owns its journal.
type Journal[T any] struct {
	entries []*Entry[T]
	index   map[domain.ID]*Entry[T]
}

// New creates an empty journal.
func New[T any]() *Journal[T] {
	return &Journal[T]{index: make(map[domain.ID]*Entry[T])}
}

// Merge combines a prior transition with a new one.
// A creation followed by a deletion collapses to None, otherwise the greater
// transition wins.
func Merge(prior, next domain.Transition) domain.Transition {
	if prior == domain.Created && next == domain.Deleted {
		return domain.None
	}
	if next > prior {
		return next
	}
	return prior
}

// Mark records a transition for the entity, merging with any prior one.
// It returns the resulting transition.
func (j *Journal[T]) Mark(id domain.ID, entity T, t domain.Transition) domain.Transition {
	if e, ok := j.index[id]; ok {
		e.Transition = Merge(e.Transition, t)
		return e.Transition
	}
	e := &Entry[T]{ID: id, Entity: entity, Transition: t}
	j.entries = append(j.entries, e)
	j.index[id] = e
	return t
}

// Get returns the transition recorded for id.
func (j *Journal[T]) Get(id domain.ID) (domain.Transition, bool) {
	e, ok := j.index[id]
	if !ok {
		return 0, false
	}
	return e.Transition, true
}

// Entries returns the entries in first-touch order. The slice is a copy but
// entries are shared with the journal.
func (j *Journal[T]) Entries() []*Entry[T] {
	out := make([]*Entry[T], len(j.entries))
	copy(out, j.entries)
	return out
}

// Select returns the entries currently carrying transition t.
func (j *Journal[T]) Select(t domain.Transition) []*Entry[T] {
	var out []*Entry[T]
	for _, e := range j.entries {
		if e.Transition == t {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (j *Journal[T]) Len() int {
	return len(j.entries)
}

// InvertTransitions swaps Created and Deleted in place.
func (j *Journal[T]) InvertTransitions() {
	for _, e := range j.entries {
		switch e.Transition {
		case domain.Created:
			e.Transition = domain.Deleted
		case domain.Deleted:
			e.Transition = domain.Created
		}
	}
}

// Prune drops the entries carrying transition t.
func (j *Journal[T]) Prune(t domain.Transition) {
	kept := j.entries[:0]
	for _, e := range j.entries {
		if e.Transition == t {
			delete(j.index, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(j.entries); i++ {
		j.entries[i] = nil
	}
	j.entries = kept
}

// Counts tallies entries per transition.
func (j *Journal[T]) Counts() map[domain.Transition]int {
	out := make(map[domain.Transition]int)
	for _, e := range j.entries {
		out[e.Transition]++
	}
	return out
}
