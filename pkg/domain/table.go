package domain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownReaction is returned when an identifier is absent from the reference table.
	ErrUnknownReaction = errors.New("reaction not in reference table")
	// ErrProtectedReaction is returned when a mutation targets a draft/original reaction.
	ErrProtectedReaction = errors.New("reaction is protected from mutation")
	// ErrAlreadyMutated is returned when a reaction would be reversed a second time.
	ErrAlreadyMutated = errors.New("reaction already mutated")
	// ErrIDConflict is returned when a derived reaction would replace a
	// reference reaction that shares its id.
	ErrIDConflict = errors.New("derived id collides with a reference reaction")
)

// ReactionTable is the reference reaction dictionary: an arena of reactions
// with an identifier index. Reads are unrestricted. The mutators
// (ReverseInPlace, PinTransportBounds, ClampForward, InsertDerived) belong to
// direction normalisation only and refuse to touch protected (draft/original)
// reactions.
//
// A table is not safe for concurrent mutation; concurrent runs work on Clones.
type ReactionTable struct {
	arena     []Reaction
	index     map[string]int
	protected map[string]struct{}
	mutated   map[string]struct{}
}

// NewReactionTable builds a table from reactions. Later duplicates replace earlier ones.
func NewReactionTable(reactions ...Reaction) *ReactionTable {
	t := &ReactionTable{
		index:     make(map[string]int, len(reactions)),
		protected: make(map[string]struct{}),
		mutated:   make(map[string]struct{}),
	}
	for _, r := range reactions {
		t.put(r.Clone())
	}
	return t
}

func (t *ReactionTable) put(r Reaction) {
	if idx, ok := t.index[r.ID]; ok {
		t.arena[idx] = r
		return
	}
	t.index[r.ID] = len(t.arena)
	t.arena = append(t.arena, r)
}

// Len returns the number of reactions.
func (t *ReactionTable) Len() int { return len(t.arena) }

// Has reports whether id is present.
func (t *ReactionTable) Has(id string) bool {
	_, ok := t.index[id]
	return ok
}

// Get returns a copy of the reaction stored under id.
func (t *ReactionTable) Get(id string) (Reaction, bool) {
	idx, ok := t.index[id]
	if !ok {
		return Reaction{}, false
	}
	return t.arena[idx].Clone(), true
}

// Lookup returns the stored reaction without copying. Callers must not modify it.
func (t *ReactionTable) Lookup(id string) (*Reaction, bool) {
	idx, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return &t.arena[idx], true
}

// IDs returns all identifiers in ascending order.
func (t *ReactionTable) IDs() []string {
	out := make([]string, 0, len(t.arena))
	for id := range t.index {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Each calls fn for every reaction in insertion order until fn returns false.
func (t *ReactionTable) Each(fn func(*Reaction) bool) {
	for i := range t.arena {
		if !fn(&t.arena[i]) {
			return
		}
	}
}

// Filter splits ids into those present in the table and those missing.
func (t *ReactionTable) Filter(ids ReactionSet) (present ReactionSet, missing []string) {
	present = make(ReactionSet, len(ids))
	for id := range ids {
		if t.Has(id) {
			present.Add(id)
			continue
		}
		missing = append(missing, id)
	}
	sort.Strings(missing)
	return present, missing
}

// Clone returns an independent deep copy, including protection state.
func (t *ReactionTable) Clone() *ReactionTable {
	out := &ReactionTable{
		arena:     make([]Reaction, len(t.arena)),
		index:     make(map[string]int, len(t.index)),
		protected: make(map[string]struct{}, len(t.protected)),
		mutated:   make(map[string]struct{}, len(t.mutated)),
	}
	for i, r := range t.arena {
		out.arena[i] = r.Clone()
	}
	for id, idx := range t.index {
		out.index[id] = idx
	}
	for id := range t.protected {
		out.protected[id] = struct{}{}
	}
	for id := range t.mutated {
		out.mutated[id] = struct{}{}
	}
	return out
}

// Protect marks ids as immutable for the lifetime of the table.
func (t *ReactionTable) Protect(ids ReactionSet) {
	for id := range ids {
		t.protected[id] = struct{}{}
	}
}

// IsProtected reports whether id is protected from mutation.
func (t *ReactionTable) IsProtected(id string) bool {
	_, ok := t.protected[id]
	return ok
}

// ReverseInPlace replaces the reaction under id with its reversal.
func (t *ReactionTable) ReverseInPlace(id string) (Reaction, error) {
	idx, ok := t.index[id]
	if !ok {
		return Reaction{}, fmt.Errorf("reverse %s: %w", id, ErrUnknownReaction)
	}
	if t.IsProtected(id) {
		return Reaction{}, fmt.Errorf("reverse %s: %w", id, ErrProtectedReaction)
	}
	if _, done := t.mutated[id]; done {
		return Reaction{}, fmt.Errorf("reverse %s: %w", id, ErrAlreadyMutated)
	}
	t.arena[idx] = t.arena[idx].Reversed()
	t.mutated[id] = struct{}{}
	return t.arena[idx].Clone(), nil
}

// PinTransportBounds pins the bounds of a transport reaction to [0, MaxFlux].
func (t *ReactionTable) PinTransportBounds(id string) error {
	idx, ok := t.index[id]
	if !ok {
		return fmt.Errorf("pin %s: %w", id, ErrUnknownReaction)
	}
	if t.IsProtected(id) {
		return fmt.Errorf("pin %s: %w", id, ErrProtectedReaction)
	}
	t.arena[idx].PinTransportBounds()
	return nil
}

// ClampForward raises a negative lower bound to zero so the reaction can only
// run forward.
func (t *ReactionTable) ClampForward(id string) error {
	idx, ok := t.index[id]
	if !ok {
		return fmt.Errorf("clamp %s: %w", id, ErrUnknownReaction)
	}
	if t.IsProtected(id) {
		return fmt.Errorf("clamp %s: %w", id, ErrProtectedReaction)
	}
	r := &t.arena[idx]
	if r.LowerBound < 0 {
		r.LowerBound = 0
	}
	if r.UpperBound < r.LowerBound {
		r.UpperBound = r.LowerBound
	}
	return nil
}

// InsertDerived adds a reaction created by splitting. It refuses to overwrite
// protected entries and reference reactions that were not themselves derived.
func (t *ReactionTable) InsertDerived(r Reaction) error {
	if r.ID == "" {
		return fmt.Errorf("insert derived reaction: empty id")
	}
	if t.IsProtected(r.ID) {
		return fmt.Errorf("insert %s: %w", r.ID, ErrProtectedReaction)
	}
	if _, derived := t.mutated[r.ID]; t.Has(r.ID) && !derived {
		return fmt.Errorf("insert %s: %w", r.ID, ErrIDConflict)
	}
	t.put(r.Clone())
	t.mutated[r.ID] = struct{}{}
	return nil
}
