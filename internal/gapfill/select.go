package gapfill

import (
	"context"
	"fmt"
	"sort"

	"gapfill/pkg/domain"
)

// DefaultGrowthThreshold is the minimum biomass flux accepted as growth by the
// final selection.
const DefaultGrowthThreshold = 1.0

// SelectRequest is the input of Selector.Select.
type SelectRequest struct {
	Reference  *domain.Reference
	Original   domain.ReactionSet
	Candidates domain.ReactionSet
	Medium     domain.Medium
	Objective  domain.Objective
	Essential  domain.ReactionSet
}

// Selection is the reduced gap-fill solution keyed by canonical reaction ids.
type Selection struct {
	Added       domain.ReactionSet
	Fluxes      domain.FluxResult
	BiomassFlux float64
	Grew        bool
	// Running counts every non-biomass, non-exchange reaction carrying flux.
	Running int
}

// Selector runs the likelihood-weighted oracle pass and extracts the added reactions.
type Selector struct {
	oracle    domain.Oracle
	threshold float64
	opts      options
}

// NewSelector constructs a selector. A non-positive threshold selects DefaultGrowthThreshold.
func NewSelector(oracle domain.Oracle, threshold float64, opts ...Option) *Selector {
	if threshold <= 0 {
		threshold = DefaultGrowthThreshold
	}
	return &Selector{oracle: oracle, threshold: threshold, opts: applyOptions(opts)}
}

// Threshold returns the biomass flux required for growth.
func (s *Selector) Threshold() float64 { return s.threshold }

// Select runs the oracle once over original ∪ candidates.
func (s *Selector) Select(ctx context.Context, req SelectRequest) (Selection, error) {
	var out Selection
	err := s.opts.observe(ctx, "select", func(ctx context.Context) error {
		if s.oracle == nil {
			return ErrNoOracle
		}
		if req.Reference == nil {
			return fmt.Errorf("select: reference database is required")
		}
		res, err := s.oracle.Run(ctx, domain.OracleRequest{
			Reference: req.Reference.Reactions,
			Active:    req.Original.Union(req.Candidates),
			Medium:    req.Medium,
			Biomass:   req.Reference.Biomass,
			Likelihood: &domain.LikelihoodRequest{
				Objective: req.Objective,
				Original:  req.Original.Clone(),
				Essential: req.Essential.Clone(),
			},
		})
		if err != nil {
			return fmt.Errorf("likelihood oracle run: %w", err)
		}
		if err := res.CheckStatus("select"); err != nil {
			return err
		}
		out = s.reduce(req.Reference.Reactions, req.Original, res.Fluxes)
		s.opts.logger.Info("gap-fill selection", "medium", req.Medium.Name, "biomass", out.BiomassFlux, "growth", out.Grew, "added", out.Added.Len())
		return nil
	})
	return out, err
}

// GrewAt reports whether a biomass flux counts as growth.
func (s *Selector) GrewAt(biomass float64) bool {
	return biomass >= s.threshold
}

// reduce folds split variants back to their canonical ids. When both halves
// of a split reaction carry flux the forward variant's value is kept.
func (s *Selector) reduce(table *domain.ReactionTable, original domain.ReactionSet, fluxes domain.FluxResult) Selection {
	biomass := fluxes[domain.BiomassID]
	out := Selection{
		Added:       domain.NewReactionSet(),
		Fluxes:      make(domain.FluxResult),
		BiomassFlux: biomass,
		Grew:        s.GrewAt(biomass),
	}

	ids := make([]string, 0, len(fluxes))
	for id := range fluxes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fromForward := make(map[string]bool)
	for _, id := range ids {
		flux := fluxes[id]
		if id == domain.BiomassID || flux == 0 || domain.IsUptakeSecretion(id) {
			continue
		}
		out.Running++
		if original.Has(id) {
			continue
		}
		canonical := canonicalID(table, id)
		isForward := canonical != id && id == canonical+domain.ForwardSuffix
		if _, seen := out.Fluxes[canonical]; seen && fromForward[canonical] && !isForward {
			continue
		}
		out.Fluxes[canonical] = flux
		fromForward[canonical] = isForward
		out.Added.Add(canonical)
	}
	return out
}

// canonicalID strips a split suffix only when the parent reaction exists.
func canonicalID(table *domain.ReactionTable, id string) string {
	if !domain.IsSplitID(id) {
		return id
	}
	parent := domain.CanonicalID(id)
	if table != nil && !table.Has(parent) {
		return id
	}
	return parent
}
