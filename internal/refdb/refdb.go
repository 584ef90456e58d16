// Package refdb loads the reference biochemistry database (compounds,
// reactions, enzyme complexes, subsystems and per-organism templates) from a
// YAML bundle.
package refdb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"gapfill/pkg/domain"
)

// ErrUnknownTemplate is returned when the bundle has no template for the requested organism type.
var ErrUnknownTemplate = errors.New("organism template not in reference bundle")

type bundle struct {
	Compounds  []domain.Compound   `yaml:"compounds"`
	Reactions  []reactionDoc       `yaml:"reactions"`
	Enzymes    []domain.Enzyme     `yaml:"enzymes"`
	Subsystems map[string][]string `yaml:"subsystems"`
	Templates  map[string]template `yaml:"templates"`
}

type reactionDoc struct {
	ID            string             `yaml:"id"`
	Name          string             `yaml:"name"`
	Stoichiometry map[string]float64 `yaml:"stoichiometry"`
	Direction     string             `yaml:"direction"`
	LowerBound    *float64           `yaml:"lower_bound"`
	UpperBound    *float64           `yaml:"upper_bound"`
	IsTransport   *bool              `yaml:"is_transport"`
	Compartments  map[string]string  `yaml:"compartments"`
}

type template struct {
	Biomass    reactionDoc `yaml:"biomass"`
	Essentials []string    `yaml:"essentials"`
	// Reactions extends the shared reaction list for this template only.
	Reactions []reactionDoc `yaml:"reactions"`
}

// Load reads the bundle at path and resolves the template for organism.
func Load(path string, organism domain.OrganismType) (*domain.Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference bundle: %w", err)
	}
	defer func() { _ = f.Close() }()
	ref, err := Read(f, organism)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

// Read decodes a bundle from r.
func Read(r io.Reader, organism domain.OrganismType) (*domain.Reference, error) {
	var b bundle
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode reference bundle: %w", err)
	}
	return b.resolve(organism)
}

func (b bundle) resolve(organism domain.OrganismType) (*domain.Reference, error) {
	tmpl, ok := b.Templates[string(organism)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", organism, ErrUnknownTemplate)
	}

	catalysed := make(map[string]struct{})
	enzymes := make(map[string]domain.Enzyme, len(b.Enzymes))
	for _, e := range b.Enzymes {
		if e.ID == "" {
			return nil, fmt.Errorf("enzyme without id")
		}
		enzymes[e.ID] = e
		for _, id := range e.Reactions {
			catalysed[id] = struct{}{}
		}
	}

	docs := append(append([]reactionDoc(nil), b.Reactions...), tmpl.Reactions...)
	reactions := make([]domain.Reaction, 0, len(docs))
	for _, doc := range docs {
		r, err := doc.reaction()
		if err != nil {
			return nil, err
		}
		_, r.HasProteins = catalysed[r.ID]
		reactions = append(reactions, r)
	}
	table := domain.NewReactionTable(reactions...)

	biomass, err := tmpl.Biomass.reaction()
	if err != nil {
		return nil, fmt.Errorf("template %s biomass: %w", organism, err)
	}
	if biomass.ID == "" {
		biomass.ID = domain.BiomassID
	}
	if len(biomass.Stoichiometry) == 0 {
		return nil, fmt.Errorf("template %s: biomass has no stoichiometry", organism)
	}

	compounds := make(map[string]domain.Compound, len(b.Compounds))
	for _, c := range b.Compounds {
		compounds[c.ID] = c
	}
	subsystems := make(map[string]domain.ReactionSet, len(b.Subsystems))
	for name, ids := range b.Subsystems {
		subsystems[name] = domain.NewReactionSet(ids...)
	}

	return &domain.Reference{
		Organism:   organism,
		Compounds:  compounds,
		Reactions:  table,
		Enzymes:    enzymes,
		Subsystems: subsystems,
		Essentials: domain.NewReactionSet(tmpl.Essentials...),
		Biomass:    biomass,
	}, nil
}

// reaction converts a document, filling bounds from the direction when they
// are omitted and flagging cross-compartment reactions as transport.
func (d reactionDoc) reaction() (domain.Reaction, error) {
	dir := domain.DirectionForward
	if d.Direction != "" {
		parsed, err := domain.ParseDirection(d.Direction)
		if err != nil {
			return domain.Reaction{}, fmt.Errorf("reaction %s: %w", d.ID, err)
		}
		dir = parsed
	}
	lower, upper := defaultBounds(dir)
	if d.LowerBound != nil {
		lower = *d.LowerBound
	}
	if d.UpperBound != nil {
		upper = *d.UpperBound
	}
	r := domain.Reaction{
		ID:            d.ID,
		Name:          d.Name,
		Stoichiometry: d.Stoichiometry,
		Direction:     dir,
		LowerBound:    lower,
		UpperBound:    upper,
		Compartments:  d.Compartments,
	}
	if r.Stoichiometry == nil {
		r.Stoichiometry = map[string]float64{}
	}
	if d.IsTransport != nil {
		r.IsTransport = *d.IsTransport
	} else {
		r.IsTransport = spansCompartments(r)
	}
	return r, nil
}

func defaultBounds(dir domain.Direction) (float64, float64) {
	switch dir {
	case domain.DirectionReverse:
		return -domain.MaxFlux, 0
	case domain.DirectionBidirectional:
		return -domain.MaxFlux, domain.MaxFlux
	default:
		return 0, domain.MaxFlux
	}
}

func spansCompartments(r domain.Reaction) bool {
	seen := ""
	for cpd := range r.Stoichiometry {
		loc := r.Location(cpd)
		if seen == "" {
			seen = loc
			continue
		}
		if loc != seen {
			return true
		}
	}
	return false
}

// Catalog maps functional roles to reactions through the enzyme complexes of
// a reference.
type Catalog struct {
	roleReactions map[string]domain.ReactionSet
	reactionRoles map[string]domain.RoleSet
}

var _ domain.RoleMapper = (*Catalog)(nil)

// NewCatalog indexes the enzymes of ref.
func NewCatalog(ref *domain.Reference) *Catalog {
	c := &Catalog{
		roleReactions: make(map[string]domain.ReactionSet),
		reactionRoles: make(map[string]domain.RoleSet),
	}
	ids := make([]string, 0, len(ref.Enzymes))
	for id := range ref.Enzymes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e := ref.Enzymes[id]
		for _, role := range e.Roles {
			for _, rxn := range e.Reactions {
				if c.roleReactions[role] == nil {
					c.roleReactions[role] = domain.NewReactionSet()
				}
				c.roleReactions[role].Add(rxn)
				if c.reactionRoles[rxn] == nil {
					c.reactionRoles[rxn] = domain.NewRoleSet()
				}
				c.reactionRoles[rxn].Add(role)
			}
		}
	}
	return c
}

// RolesToReactions returns, for each known role, the reactions it enables.
// Unknown roles are omitted.
func (c *Catalog) RolesToReactions(roles domain.RoleSet) map[string]domain.ReactionSet {
	out := make(map[string]domain.ReactionSet)
	for role := range roles {
		if rs, ok := c.roleReactions[role]; ok {
			out[role] = rs.Clone()
		}
	}
	return out
}

// ReactionsToRoles returns, for each catalysed reaction, the roles behind it.
func (c *Catalog) ReactionsToRoles(reactions domain.ReactionSet) map[string]domain.RoleSet {
	out := make(map[string]domain.RoleSet)
	for id := range reactions {
		if rs, ok := c.reactionRoles[id]; ok {
			out[id] = rs.Clone()
		}
	}
	return out
}
