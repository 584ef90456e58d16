package gapfill

import (
	"gapfill/pkg/domain"
)

// ObjectiveBuilder maps reaction probabilities onto normalized candidates.
// Candidates without a probability receive DefaultProbability.
type ObjectiveBuilder struct {
	DefaultProbability float64
}

// NewObjectiveBuilder constructs a builder with the supplied fallback weight.
func NewObjectiveBuilder(defaultProbability float64) ObjectiveBuilder {
	return ObjectiveBuilder{DefaultProbability: clampUnit(defaultProbability)}
}

// Build returns the likelihood-weighted objective for candidates. A higher
// coefficient makes the oracle prefer activating that reaction.
func (b ObjectiveBuilder) Build(probs domain.ReactionProbabilities, candidates domain.ReactionSet) domain.Objective {
	obj := domain.Objective{Coefficients: make(map[string]float64, candidates.Len())}
	for _, id := range candidates.Sorted() {
		p, ok := probs[id]
		if !ok {
			p = b.DefaultProbability
			obj.Defaulted = append(obj.Defaulted, id)
		}
		obj.Coefficients[id] = clampUnit(p)
	}
	return obj
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
