// Package oracle provides feasibility oracles for the gap-filling pipeline.
//
// Expansion answers growth questions by network expansion: starting from the
// medium, a reaction fires once every compound it consumes is reachable, and
// biomass is produced once every biomass precursor is reachable. It is a
// topological stand-in for flux balance analysis and needs no LP solver. Exec
// delegates each request to an external solver process, and Cached memoises
// plain feasibility probes in front of either.
package oracle

import (
	"context"
	"errors"
	"sort"

	"gapfill/pkg/domain"
)

// DefaultBiomassFlux is the biomass flux reported when biomass is reachable.
const DefaultBiomassFlux = 1.0

// ErrNoReference is returned when a request carries no reaction table.
var ErrNoReference = errors.New("oracle request has no reference table")

// Expansion is a network-expansion oracle.
type Expansion struct {
	// BiomassFlux is reported for a growing network. Zero selects DefaultBiomassFlux.
	BiomassFlux float64
}

var _ domain.Oracle = Expansion{}

// NewExpansion returns an expansion oracle reporting DefaultBiomassFlux on growth.
func NewExpansion() Expansion { return Expansion{BiomassFlux: DefaultBiomassFlux} }

// Run evaluates req. Plain requests expand the whole active set. Likelihood
// requests additionally drop candidates (active reactions that are neither
// original nor essential) from the lowest coefficient upwards for as long as
// biomass stays reachable; the objective is the summed weight of the
// candidates kept.
func (e Expansion) Run(ctx context.Context, req domain.OracleRequest) (domain.OracleResult, error) {
	if req.Reference == nil {
		return domain.OracleResult{}, ErrNoReference
	}
	if err := ctx.Err(); err != nil {
		return domain.OracleResult{}, err
	}
	active := req.Active.Clone()
	if req.Likelihood == nil {
		return e.result(e.expand(req, active), 0, false), nil
	}

	full := e.expand(req, active)
	if !full.grew {
		return e.result(full, 0, true), nil
	}
	for _, id := range pruneOrder(active, req.Likelihood) {
		if err := ctx.Err(); err != nil {
			return domain.OracleResult{}, err
		}
		active.Remove(id)
		if !e.expand(req, active).grew {
			active.Add(id)
		}
	}
	var objective float64
	for id := range active {
		if req.Likelihood.Original.Has(id) || req.Likelihood.Essential.Has(id) {
			continue
		}
		if c, ok := req.Likelihood.Objective.Coefficient(id); ok {
			objective += c
		}
	}
	return e.result(e.expand(req, active), objective, true), nil
}

// pruneOrder lists the removable candidates by ascending coefficient, ties by id.
func pruneOrder(active domain.ReactionSet, lk *domain.LikelihoodRequest) []string {
	ids := make([]string, 0, active.Len())
	for id := range active {
		if lk.Original.Has(id) || lk.Essential.Has(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ci, _ := lk.Objective.Coefficient(ids[i])
		cj, _ := lk.Objective.Coefficient(ids[j])
		if ci != cj {
			return ci < cj
		}
		return ids[i] < ids[j]
	})
	return ids
}

type expansion struct {
	fluxes domain.FluxResult
	uptake map[string]struct{}
	grew   bool
}

func (e Expansion) expand(req domain.OracleRequest, active domain.ReactionSet) expansion {
	reachable := make(map[string]struct{}, req.Medium.Len())
	for cpd := range req.Medium.Compounds {
		reachable[cpd] = struct{}{}
	}
	out := expansion{fluxes: make(domain.FluxResult), uptake: make(map[string]struct{})}
	ids := active.Sorted()

	for changed := true; changed; {
		changed = false
		for _, id := range ids {
			if _, fired := out.fluxes[id]; fired {
				continue
			}
			r, ok := req.Reference.Lookup(id)
			if !ok {
				continue
			}
			if dir := fire(r, reachable, out.uptake, req.Medium); dir != 0 {
				out.fluxes[id] = dir
				changed = true
			}
		}
	}

	if len(req.Biomass.Stoichiometry) > 0 && consumable(req.Biomass.Stoichiometry, -1, reachable) {
		out.grew = true
		for cpd, coeff := range req.Biomass.Stoichiometry {
			if coeff < 0 && req.Medium.Has(cpd) {
				out.uptake[cpd] = struct{}{}
			}
		}
	}
	return out
}

// fire returns +1 or -1 when r can run forward or backward given reachable,
// adding what it produces to reachable, or 0 when it cannot run.
func fire(r *domain.Reaction, reachable, uptake map[string]struct{}, medium domain.Medium) float64 {
	for _, sign := range []float64{-1, 1} {
		if sign < 0 && r.UpperBound <= 0 {
			continue
		}
		if sign > 0 && r.LowerBound >= 0 {
			continue
		}
		if !consumable(r.Stoichiometry, sign, reachable) {
			continue
		}
		for cpd, coeff := range r.Stoichiometry {
			if coeff*sign > 0 {
				if medium.Has(cpd) {
					uptake[cpd] = struct{}{}
				}
				continue
			}
			reachable[cpd] = struct{}{}
		}
		return -sign
	}
	return 0
}

// consumable reports whether every compound with a coefficient of the given
// sign is reachable.
func consumable(stoich map[string]float64, sign float64, reachable map[string]struct{}) bool {
	for cpd, coeff := range stoich {
		if coeff*sign <= 0 {
			continue
		}
		if _, ok := reachable[cpd]; !ok {
			return false
		}
	}
	return true
}

func (e Expansion) result(x expansion, objective float64, likelihood bool) domain.OracleResult {
	flux := e.BiomassFlux
	if flux == 0 {
		flux = DefaultBiomassFlux
	}
	res := domain.OracleResult{Status: domain.StatusOptimal, Grew: x.grew, Fluxes: x.fluxes}
	if x.grew {
		res.Fluxes[domain.BiomassID] = flux
		for cpd := range x.uptake {
			res.Fluxes[domain.UptakeSecretionMarker+" "+cpd] = -1
		}
	}
	res.ObjectiveValue = res.Fluxes[domain.BiomassID]
	if likelihood {
		res.ObjectiveValue = objective
	}
	return res
}
