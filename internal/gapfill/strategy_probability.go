package gapfill

import (
	"context"

	"gapfill/pkg/domain"
)

// CompoundProbabilityStrategy proposes reactions whose compounds are largely
// already present in the model. The probability of a reaction is the fraction
// of its compounds seen in the working set.
type CompoundProbabilityStrategy struct {
	Cutoff       float64
	WithProteins bool
}

// NewCompoundProbabilityStrategy constructs the compound-probability stage.
func NewCompoundProbabilityStrategy(cutoff float64, withProteins bool) CompoundProbabilityStrategy {
	return CompoundProbabilityStrategy{Cutoff: cutoff, WithProteins: withProteins}
}

func (CompoundProbabilityStrategy) Name() string   { return "compound_probability" }
func (CompoundProbabilityStrategy) Source() string { return SourceProbability }

func (s CompoundProbabilityStrategy) Suggest(ctx context.Context, in StageInput) (domain.ReactionSet, error) {
	present := modelCompounds(in)
	out := domain.NewReactionSet()
	var err error
	in.Reference.Reactions.Each(func(r *domain.Reaction) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if in.Working.Has(r.ID) || len(r.Stoichiometry) == 0 {
			return true
		}
		if s.WithProteins && !r.HasProteins {
			return true
		}
		found := 0
		for cpd := range r.Stoichiometry {
			if _, ok := present[cpd]; ok {
				found++
			}
		}
		if float64(found)/float64(len(r.Stoichiometry)) > s.Cutoff {
			out.Add(r.ID)
		}
		return true
	})
	return out, err
}
