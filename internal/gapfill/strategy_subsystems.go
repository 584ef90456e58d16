package gapfill

import (
	"context"

	"gapfill/pkg/domain"
)

// DefaultSubsystemThreshold is the fraction of a subsystem that must already be
// present before the rest of it is proposed.
const DefaultSubsystemThreshold = 0.5

// SubsystemStrategy completes subsystems that are mostly present.
type SubsystemStrategy struct {
	Threshold float64
}

// NewSubsystemStrategy constructs the subsystem-completion stage.
func NewSubsystemStrategy(threshold float64) SubsystemStrategy {
	return SubsystemStrategy{Threshold: threshold}
}

func (SubsystemStrategy) Name() string   { return "subsystems" }
func (SubsystemStrategy) Source() string { return SourceSubsystem }

// Suggest proposes the missing members of every subsystem whose present
// fraction strictly exceeds the threshold.
func (s SubsystemStrategy) Suggest(ctx context.Context, in StageInput) (domain.ReactionSet, error) {
	out := domain.NewReactionSet()
	for _, name := range in.Reference.SubsystemNames() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		members, _ := in.Reference.Reactions.Filter(in.Reference.Subsystems[name])
		if members.Len() == 0 {
			continue
		}
		present := members.Intersection(in.Working).Len()
		if float64(present)/float64(members.Len()) > s.Threshold {
			out.Update(members.Difference(in.Working))
		}
	}
	return out, nil
}
