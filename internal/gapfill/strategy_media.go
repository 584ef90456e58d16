package gapfill

import (
	"context"

	"gapfill/pkg/domain"
)

// MediaStrategy proposes transport reactions that carry medium compounds the
// working model cannot yet take up.
type MediaStrategy struct{}

// NewMediaStrategy constructs the media stage.
func NewMediaStrategy() MediaStrategy { return MediaStrategy{} }

func (MediaStrategy) Name() string   { return "media" }
func (MediaStrategy) Source() string { return SourceMedia }

func (MediaStrategy) Suggest(ctx context.Context, in StageInput) (domain.ReactionSet, error) {
	transported := make(map[string]struct{})
	for id := range in.Working {
		r, ok := in.Reference.Reactions.Lookup(id)
		if !ok || !r.IsTransport {
			continue
		}
		for cpd := range r.Stoichiometry {
			transported[cpd] = struct{}{}
		}
	}

	missing := make(map[string]struct{})
	for cpd := range in.Medium.Compounds {
		if _, ok := transported[cpd]; !ok {
			missing[cpd] = struct{}{}
		}
	}

	out := domain.NewReactionSet()
	if len(missing) == 0 {
		return out, nil
	}
	var err error
	in.Reference.Reactions.Each(func(r *domain.Reaction) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if !r.IsTransport || in.Working.Has(r.ID) {
			return true
		}
		for cpd := range r.Stoichiometry {
			if _, ok := missing[cpd]; ok && r.Location(cpd) == "e" {
				out.Add(r.ID)
				break
			}
		}
		return true
	})
	return out, err
}
