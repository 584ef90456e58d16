package domain

import "sort"

// ReactionSet is a set of reaction identifiers. The zero value is not usable;
// construct with NewReactionSet.
type ReactionSet map[string]struct{}

// NewReactionSet builds a set from the supplied identifiers.
func NewReactionSet(ids ...string) ReactionSet {
	s := make(ReactionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts ids into the set.
func (s ReactionSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Remove deletes id from the set.
func (s ReactionSet) Remove(id string) {
	delete(s, id)
}

// Has reports membership.
func (s ReactionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members.
func (s ReactionSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s ReactionSet) Clone() ReactionSet {
	out := make(ReactionSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Update adds every member of other.
func (s ReactionSet) Update(other ReactionSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Union returns a new set holding members of both sets.
func (s ReactionSet) Union(other ReactionSet) ReactionSet {
	out := s.Clone()
	out.Update(other)
	return out
}

// Difference returns the members of s not present in other.
func (s ReactionSet) Difference(other ReactionSet) ReactionSet {
	out := make(ReactionSet, len(s))
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Intersection returns the members present in both sets.
func (s ReactionSet) Intersection(other ReactionSet) ReactionSet {
	out := make(ReactionSet)
	for id := range s {
		if other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same members.
func (s ReactionSet) Equal(other ReactionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the members in ascending order.
func (s ReactionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ProvenanceMap records which evidence source first proposed a reaction.
type ProvenanceMap map[string]string

// Attribute records label for id unless id is already attributed.
// It returns true when the attribution was written.
func (p ProvenanceMap) Attribute(id, label string) bool {
	if _, ok := p[id]; ok {
		return false
	}
	p[id] = label
	return true
}

// Clone returns an independent copy.
func (p ProvenanceMap) Clone() ProvenanceMap {
	out := make(ProvenanceMap, len(p))
	for id, label := range p {
		out[id] = label
	}
	return out
}

// ReactionProbabilities maps reaction identifiers to a likelihood in [0,1].
type ReactionProbabilities map[string]float64

// Clone returns an independent copy.
func (p ReactionProbabilities) Clone() ReactionProbabilities {
	out := make(ReactionProbabilities, len(p))
	for id, v := range p {
		out[id] = v
	}
	return out
}

// FluxResult maps reaction identifiers to signed flux values from a single oracle run.
type FluxResult map[string]float64

// Medium is the set of compounds available for uptake. It is treated as
// immutable for the duration of a run.
type Medium struct {
	Name      string
	Compounds CompoundSet
}

// NewMedium builds a medium from compound identifiers.
func NewMedium(name string, compounds ...string) Medium {
	return Medium{Name: name, Compounds: NewReactionSet(compounds...)}
}

// Has reports whether the compound is available.
func (m Medium) Has(compound string) bool { return m.Compounds.Has(compound) }

// Len returns the number of available compounds.
func (m Medium) Len() int { return m.Compounds.Len() }

// RoleSet is a set of functional role names.
type RoleSet = ReactionSet

// CompoundSet is a set of compound identifiers.
type CompoundSet = ReactionSet

// NewRoleSet builds a role set.
func NewRoleSet(roles ...string) RoleSet { return NewReactionSet(roles...) }
