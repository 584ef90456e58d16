package gapfill

import (
	"context"

	"gapfill/pkg/domain"
)

// EssentialStrategy proposes reactions present in essentially every model.
type EssentialStrategy struct{}

// NewEssentialStrategy constructs the essential-reactions stage.
func NewEssentialStrategy() EssentialStrategy { return EssentialStrategy{} }

func (EssentialStrategy) Name() string   { return "essential" }
func (EssentialStrategy) Source() string { return SourceEssential }

func (EssentialStrategy) Suggest(_ context.Context, in StageInput) (domain.ReactionSet, error) {
	return in.Reference.Essentials.Clone(), nil
}
