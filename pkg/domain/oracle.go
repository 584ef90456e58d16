package domain

import (
	"context"
	"fmt"
)

// OracleStatus is the solver status reported by a feasibility oracle.
type OracleStatus string

// Oracle statuses. Anything other than StatusOptimal is a failure that must be
// surfaced to the caller instead of being read as "no growth".
const (
	StatusOptimal    OracleStatus = "optimal"
	StatusInfeasible OracleStatus = "infeasible"
	StatusUnbounded  OracleStatus = "unbounded"
	StatusError      OracleStatus = "error"
)

// Objective carries the likelihood weights for candidate reactions.
type Objective struct {
	Coefficients map[string]float64
	// Defaulted lists candidates that received the fallback weight.
	Defaulted []string
}

// Coefficient returns the weight for id and whether one was set.
func (o Objective) Coefficient(id string) (float64, bool) {
	v, ok := o.Coefficients[id]
	return v, ok
}

// LikelihoodRequest switches an oracle run into likelihood-weighted gap-filling mode.
type LikelihoodRequest struct {
	Objective Objective
	// Original reactions are unconditionally keepable.
	Original ReactionSet
	// Essential reactions must not be penalised by tie-breaking.
	Essential ReactionSet
}

// OracleRequest describes a single feasibility evaluation.
type OracleRequest struct {
	Reference  *ReactionTable
	Active     ReactionSet
	Medium     Medium
	Biomass    Reaction
	Likelihood *LikelihoodRequest
}

// OracleResult is the outcome of one oracle run. Fluxes are valid for this run only.
type OracleResult struct {
	Status         OracleStatus
	ObjectiveValue float64
	Grew           bool
	Fluxes         FluxResult
}

// Oracle evaluates whether a reaction set supports biomass production on a medium.
type Oracle interface {
	Run(ctx context.Context, req OracleRequest) (OracleResult, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, req OracleRequest) (OracleResult, error)

// Run implements Oracle.
func (f OracleFunc) Run(ctx context.Context, req OracleRequest) (OracleResult, error) {
	return f(ctx, req)
}

// OracleStatusError reports a non-success solver status.
type OracleStatusError struct {
	Status OracleStatus
	Stage  string
}

func (e *OracleStatusError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("oracle returned status %s", e.Status)
	}
	return fmt.Sprintf("oracle returned status %s during %s", e.Status, e.Stage)
}

// CheckStatus converts a non-optimal status into an *OracleStatusError.
func (r OracleResult) CheckStatus(stage string) error {
	if r.Status == StatusOptimal {
		return nil
	}
	return &OracleStatusError{Status: r.Status, Stage: stage}
}

// RoleMapper maps functional roles to reactions and back.
type RoleMapper interface {
	RolesToReactions(roles RoleSet) map[string]ReactionSet
	ReactionsToRoles(reactions ReactionSet) map[string]RoleSet
}

// OrganismType selects the reference template (cell wall type).
type OrganismType string

// Supported organism templates.
const (
	GramNegative OrganismType = "gramnegative"
	GramPositive OrganismType = "grampositive"
)

// ParseOrganismType normalises an organism template name.
func ParseOrganismType(raw string) (OrganismType, error) {
	switch raw {
	case "", string(GramNegative), "gram-negative", "negative":
		return GramNegative, nil
	case string(GramPositive), "gram-positive", "positive":
		return GramPositive, nil
	default:
		return "", fmt.Errorf("unknown organism type %q", raw)
	}
}

// Compound is a metabolite from the reference database.
type Compound struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Enzyme is an enzyme complex linking roles to the reactions it catalyses.
type Enzyme struct {
	ID        string   `json:"id" yaml:"id"`
	Roles     []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Reactions []string `json:"reactions,omitempty" yaml:"reactions,omitempty"`
}
