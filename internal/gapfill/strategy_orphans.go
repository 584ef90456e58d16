package gapfill

import (
	"context"
	"sort"

	"gapfill/pkg/domain"
)

// OrphanStrategy connects orphan compounds: compounds touched by exactly one
// working reaction. Each orphan receives at most MaxReactions of its
// connecting reference reactions, lowest id first. A non-positive
// MaxReactions proposes every connecting reaction.
type OrphanStrategy struct {
	MaxReactions int
}

// NewOrphanStrategy constructs the orphan-compound stage.
func NewOrphanStrategy(maxReactions int) OrphanStrategy {
	return OrphanStrategy{MaxReactions: maxReactions}
}

func (OrphanStrategy) Name() string   { return "orphans" }
func (OrphanStrategy) Source() string { return SourceOrphan }

func (s OrphanStrategy) Suggest(ctx context.Context, in StageInput) (domain.ReactionSet, error) {
	orphans := make(map[string]struct{})
	for cpd, n := range modelCompounds(in) {
		if n == 1 {
			orphans[cpd] = struct{}{}
		}
	}
	out := domain.NewReactionSet()
	if len(orphans) == 0 {
		return out, nil
	}

	connecting := make(map[string][]string, len(orphans))
	var err error
	in.Reference.Reactions.Each(func(r *domain.Reaction) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if in.Working.Has(r.ID) {
			return true
		}
		for cpd := range r.Stoichiometry {
			if _, ok := orphans[cpd]; ok {
				connecting[cpd] = append(connecting[cpd], r.ID)
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	for _, ids := range connecting {
		sort.Strings(ids)
		if s.MaxReactions > 0 && len(ids) > s.MaxReactions {
			ids = ids[:s.MaxReactions]
		}
		out.Add(ids...)
	}
	return out, nil
}
