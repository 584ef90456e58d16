package gapfill

import (
	"context"

	"gapfill/pkg/domain"
)

// Provenance labels recorded for each evidence source.
const (
	SourceMedia       = "media_reactions"
	SourceClose       = "close_genomes"
	SourceGenus       = "genus_reactions"
	SourceEssential   = "essential_reactions"
	SourceSubsystem   = "subsystem_reactions"
	SourceOrphan      = "orphan_compounds"
	SourceProbability = "probable_reactions"
)

// StageInput is the read-only view handed to a strategy. Working is a private
// copy of the current working reaction set.
type StageInput struct {
	Reference *domain.Reference
	Working   domain.ReactionSet
	Medium    domain.Medium
	Biomass   domain.Reaction
}

// Strategy proposes candidate reactions from one evidence source.
// An empty result is valid.
type Strategy interface {
	Name() string
	Source() string
	Suggest(ctx context.Context, in StageInput) (domain.ReactionSet, error)
}

// modelCompounds collects every compound that participates in the working set.
func modelCompounds(in StageInput) map[string]int {
	counts := make(map[string]int)
	for id := range in.Working {
		r, ok := in.Reference.Reactions.Lookup(id)
		if !ok {
			continue
		}
		for cpd := range r.Stoichiometry {
			counts[cpd]++
		}
	}
	return counts
}
