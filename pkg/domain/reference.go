package domain

import "sort"

// Reference bundles the reference database for one organism template.
// Reactions is the shared reaction dictionary; everything else is read-only.
type Reference struct {
	Organism   OrganismType
	Compounds  map[string]Compound
	Reactions  *ReactionTable
	Enzymes    map[string]Enzyme
	Subsystems map[string]ReactionSet
	Essentials ReactionSet
	Biomass    Reaction
}

// Clone returns a reference whose reaction table is private to the caller.
// Read-only maps are shared.
func (r *Reference) Clone() *Reference {
	out := *r
	out.Reactions = r.Reactions.Clone()
	return &out
}

// SubsystemNames returns subsystem names in ascending order.
func (r *Reference) SubsystemNames() []string {
	out := make([]string, 0, len(r.Subsystems))
	for name := range r.Subsystems {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
