package domain

import (
	"fmt"
	"math"
	"strings"
)

// Direction describes which way a reaction is allowed to carry flux.
type Direction string

// Directions accepted by the reference data. The short spellings mirror the
// ModelSEED notation and are accepted by ParseDirection.
const (
	DirectionForward       Direction = "forward"
	DirectionReverse       Direction = "reverse"
	DirectionBidirectional Direction = "bidirectional"
)

const (
	// MaxFlux is the conventional upper flux bound used for unconstrained reactions.
	MaxFlux = 1000.0

	// BiomassID identifies the biomass pseudo-reaction in oracle flux maps.
	BiomassID = "BIOMASS_EQN"
	// UptakeSecretionMarker is contained in the identifier of every uptake/secretion pseudo-reaction.
	UptakeSecretionMarker = "UPTAKE_SECRETION_REACTION"

	// ForwardSuffix and ReverseSuffix name the two halves of a split bidirectional reaction.
	ForwardSuffix = "_f"
	ReverseSuffix = "_r"
)

// ParseDirection accepts both the long names and the ">", "<", "=" notation.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ">", "=>", string(DirectionForward):
		return DirectionForward, nil
	case "<", "<=", string(DirectionReverse):
		return DirectionReverse, nil
	case "=", "<=>", string(DirectionBidirectional), "reversible":
		return DirectionBidirectional, nil
	default:
		return "", fmt.Errorf("unknown reaction direction %q", raw)
	}
}

// Reaction is a single stoichiometric reaction from the reference database.
// Negative coefficients are consumed, positive coefficients are produced.
type Reaction struct {
	ID            string             `json:"id" yaml:"id"`
	Name          string             `json:"name,omitempty" yaml:"name,omitempty"`
	Stoichiometry map[string]float64 `json:"stoichiometry" yaml:"stoichiometry"`
	Direction     Direction          `json:"direction" yaml:"direction"`
	LowerBound    float64            `json:"lower_bound" yaml:"lower_bound"`
	UpperBound    float64            `json:"upper_bound" yaml:"upper_bound"`
	IsTransport   bool               `json:"is_transport,omitempty" yaml:"is_transport,omitempty"`
	// HasProteins reports whether any enzyme complex in the reference catalyses the reaction.
	HasProteins bool `json:"has_proteins,omitempty" yaml:"has_proteins,omitempty"`
	// Compartments maps a compound to its location ("c", "e", ...). Missing entries mean cytosol.
	Compartments map[string]string `json:"compartments,omitempty" yaml:"compartments,omitempty"`
}

// Clone returns a deep copy so derived reactions never alias their source maps.
func (r Reaction) Clone() Reaction {
	out := r
	out.Stoichiometry = make(map[string]float64, len(r.Stoichiometry))
	for cpd, coeff := range r.Stoichiometry {
		out.Stoichiometry[cpd] = coeff
	}
	if r.Compartments != nil {
		out.Compartments = make(map[string]string, len(r.Compartments))
		for cpd, loc := range r.Compartments {
			out.Compartments[cpd] = loc
		}
	}
	return out
}

// Validate reports whether the bounds agree with the declared direction.
// Callers use it for diagnostics only; inconsistent reactions are normalised, not rejected.
func (r Reaction) Validate() error {
	if r.LowerBound > r.UpperBound {
		return fmt.Errorf("reaction %s: lower bound %g exceeds upper bound %g", r.ID, r.LowerBound, r.UpperBound)
	}
	switch r.Direction {
	case DirectionForward:
		if r.LowerBound < 0 {
			return fmt.Errorf("reaction %s: forward reaction has negative lower bound %g", r.ID, r.LowerBound)
		}
	case DirectionReverse:
		if r.UpperBound > 0 {
			return fmt.Errorf("reaction %s: reverse reaction has positive upper bound %g", r.ID, r.UpperBound)
		}
	case DirectionBidirectional:
	default:
		return fmt.Errorf("reaction %s: unknown direction %q", r.ID, r.Direction)
	}
	return nil
}

// Compounds returns the compounds participating in the reaction.
func (r Reaction) Compounds() []string {
	out := make([]string, 0, len(r.Stoichiometry))
	for cpd := range r.Stoichiometry {
		out = append(out, cpd)
	}
	return out
}

// Location returns the compartment of a compound within the reaction.
func (r Reaction) Location(compound string) string {
	if loc, ok := r.Compartments[compound]; ok && loc != "" {
		return loc
	}
	return "c"
}

// Reversed returns the reaction running the other way: coefficients are
// negated, bounds [l,u] become [-u,-l] and the direction flips.
// Reversed is an involution.
func (r Reaction) Reversed() Reaction {
	out := r.Clone()
	for cpd, coeff := range out.Stoichiometry {
		out.Stoichiometry[cpd] = -coeff
	}
	out.LowerBound, out.UpperBound = negZero(-r.UpperBound), negZero(-r.LowerBound)
	switch r.Direction {
	case DirectionForward:
		out.Direction = DirectionReverse
	case DirectionReverse:
		out.Direction = DirectionForward
	}
	return out
}

// Split divides a bidirectional reaction into two new forward-only reactions.
// The receiver is left untouched.
func (r Reaction) Split() (Reaction, Reaction) {
	capacity := math.Max(math.Abs(r.LowerBound), math.Abs(r.UpperBound))
	if capacity == 0 {
		capacity = MaxFlux
	}

	fwd := r.Clone()
	fwd.ID = r.ID + ForwardSuffix
	fwd.Direction = DirectionForward
	fwd.LowerBound, fwd.UpperBound = 0, capacity

	rev := r.Reversed()
	rev.ID = r.ID + ReverseSuffix
	rev.Direction = DirectionForward
	rev.LowerBound, rev.UpperBound = 0, capacity
	return fwd, rev
}

// PinTransportBounds sets the bounds used for forward-only transport reactions.
func (r *Reaction) PinTransportBounds() {
	r.LowerBound = 0
	r.UpperBound = MaxFlux
}

// IsSplitID reports whether id carries a split-reaction suffix.
func IsSplitID(id string) bool {
	return strings.HasSuffix(id, ForwardSuffix) || strings.HasSuffix(id, ReverseSuffix)
}

// CanonicalID strips a single trailing split suffix.
func CanonicalID(id string) string {
	if trimmed, ok := strings.CutSuffix(id, ForwardSuffix); ok {
		return trimmed
	}
	if trimmed, ok := strings.CutSuffix(id, ReverseSuffix); ok {
		return trimmed
	}
	return id
}

// IsUptakeSecretion reports whether id names an uptake/secretion pseudo-reaction.
func IsUptakeSecretion(id string) bool {
	return strings.Contains(id, UptakeSecretionMarker)
}

func negZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
