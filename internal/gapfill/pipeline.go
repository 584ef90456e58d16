package gapfill

import (
	"context"
	"errors"
	"fmt"

	"gapfill/pkg/domain"
)

// Default parameters of the built-in suggestion stages.
const (
	DefaultOrphanMaxReactions = 1
	DefaultProbabilityCutoff  = 0.0
)

var (
	// ErrEmptyDraft is returned when the draft reaction set is empty.
	ErrEmptyDraft = errors.New("draft reaction set is empty")
	// ErrEmptyMedium is returned when the medium has no compounds.
	ErrEmptyMedium = errors.New("medium has no compounds")
	// ErrNoOracle is returned when a component is built without an oracle.
	ErrNoOracle = errors.New("feasibility oracle is required")
)

// State is a state of the suggestion state machine.
type State int

// Suggestion states. GrowthAchieved and AllStagesExhausted are terminal.
const (
	StateInitial State = iota
	StateStageRunning
	StateGrowthAchieved
	StateAllStagesExhausted
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateStageRunning:
		return "stage_running"
	case StateGrowthAchieved:
		return "growth_achieved"
	case StateAllStagesExhausted:
		return "all_stages_exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateGrowthAchieved || s == StateAllStagesExhausted
}

// StageError wraps a failure raised while running a stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// StageReport describes what one stage contributed.
type StageReport struct {
	Name           string
	Source         string
	Proposed       int
	Added          int
	WorkingSetSize int
	Grew           bool
	ObjectiveValue float64
	// Skipped lists proposed identifiers missing from the reference.
	Skipped []string
}

// SuggestRequest is the input of Pipeline.Suggest.
type SuggestRequest struct {
	Reference  *domain.Reference
	Draft      domain.ReactionSet
	DraftRoles domain.RoleSet
	Medium     domain.Medium
}

// Suggestion is the outcome of Pipeline.Suggest.
type Suggestion struct {
	MissingReactions domain.ReactionSet
	MissingRoles     domain.RoleSet
	Provenance       domain.ProvenanceMap
	Stages           []StageReport
	State            State
	Grew             bool
	ObjectiveValue   float64
	// Skipped lists draft identifiers missing from the reference.
	Skipped []string
}

// Pipeline runs evidence strategies in registration order until the oracle
// reports growth.
type Pipeline struct {
	oracle     domain.Oracle
	roles      domain.RoleMapper
	strategies []Strategy
	opts       options
}

// NewPipeline constructs an empty pipeline.
func NewPipeline(oracle domain.Oracle, roles domain.RoleMapper, opts ...Option) *Pipeline {
	return &Pipeline{oracle: oracle, roles: roles, opts: applyOptions(opts)}
}

// Evidence holds the role lists consumed by the comparative-genome stages.
type Evidence struct {
	CloseRoles domain.RoleSet
	GenusRoles domain.RoleSet
}

// NewDefaultPipeline registers the built-in stages from most to least specific.
func NewDefaultPipeline(oracle domain.Oracle, roles domain.RoleMapper, evidence Evidence, opts ...Option) *Pipeline {
	p := NewPipeline(oracle, roles, opts...)
	p.Register(NewMediaStrategy())
	p.Register(NewCloseGenomesStrategy(evidence.CloseRoles, roles))
	p.Register(NewGenusStrategy(evidence.GenusRoles, roles))
	p.Register(NewEssentialStrategy())
	p.Register(NewSubsystemStrategy(DefaultSubsystemThreshold))
	p.Register(NewOrphanStrategy(DefaultOrphanMaxReactions))
	p.Register(NewCompoundProbabilityStrategy(DefaultProbabilityCutoff, true))
	return p
}

// Register appends a stage.
func (p *Pipeline) Register(s Strategy) {
	if s == nil {
		return
	}
	p.strategies = append(p.strategies, s)
}

// Strategies returns the registered stages in order.
func (p *Pipeline) Strategies() []Strategy {
	out := make([]Strategy, len(p.strategies))
	copy(out, p.strategies)
	return out
}

// Suggest proposes reactions that may be missing from the draft model.
func (p *Pipeline) Suggest(ctx context.Context, req SuggestRequest) (Suggestion, error) {
	var out Suggestion
	err := p.opts.observe(ctx, "suggest", func(ctx context.Context) error {
		r, err := p.start(req)
		if err != nil {
			return err
		}
		for !r.state.Terminal() {
			if err := r.step(ctx); err != nil {
				return err
			}
		}
		out = r.result()
		return nil
	})
	return out, err
}

type suggestRun struct {
	p          *Pipeline
	req        SuggestRequest
	state      State
	next       int
	working    domain.ReactionSet
	collected  domain.ReactionSet
	provenance domain.ProvenanceMap
	stages     []StageReport
	skipped    []string
	grew       bool
	objective  float64
}

func (p *Pipeline) start(req SuggestRequest) (*suggestRun, error) {
	if p.oracle == nil {
		return nil, ErrNoOracle
	}
	if req.Reference == nil || req.Reference.Reactions == nil {
		return nil, fmt.Errorf("suggest: reference database is required")
	}
	if req.Draft.Len() == 0 {
		return nil, ErrEmptyDraft
	}
	if req.Medium.Len() == 0 {
		return nil, ErrEmptyMedium
	}
	working, missing := req.Reference.Reactions.Filter(req.Draft)
	for _, id := range missing {
		p.opts.logger.Warn("draft reaction not in reference, skipped", "reaction", id)
	}
	if working.Len() == 0 {
		return nil, ErrEmptyDraft
	}
	return &suggestRun{
		p:          p,
		req:        req,
		state:      StateInitial,
		working:    working,
		collected:  domain.NewReactionSet(),
		provenance: make(domain.ProvenanceMap),
		skipped:    missing,
	}, nil
}

// step performs exactly one transition.
func (r *suggestRun) step(ctx context.Context) error {
	switch r.state {
	case StateInitial:
		res, err := r.probe(ctx, "initial")
		if err != nil {
			return err
		}
		r.p.opts.logger.Info("initial feasibility", "medium", r.req.Medium.Name, "biomass", res.ObjectiveValue, "growth", res.Grew)
		r.advance(res.Grew)
		return nil
	case StateStageRunning:
		s := r.p.strategies[r.next]
		r.next++
		grew, err := r.runStage(ctx, s)
		if err != nil {
			return &StageError{Stage: s.Name(), Err: err}
		}
		r.advance(grew)
		return nil
	default:
		return fmt.Errorf("suggest: no transition from %s", r.state)
	}
}

func (r *suggestRun) advance(grew bool) {
	r.grew = grew
	switch {
	case grew:
		r.state = StateGrowthAchieved
	case r.next >= len(r.p.strategies):
		r.state = StateAllStagesExhausted
	default:
		r.state = StateStageRunning
	}
}

func (r *suggestRun) runStage(ctx context.Context, s Strategy) (bool, error) {
	var grew bool
	err := r.p.opts.observe(ctx, "stage."+s.Name(), func(ctx context.Context) error {
		in := StageInput{
			Reference: r.req.Reference,
			Working:   r.working.Clone(),
			Medium:    r.req.Medium,
			Biomass:   r.req.Reference.Biomass,
		}
		proposed, err := s.Suggest(ctx, in)
		if err != nil {
			return err
		}
		fresh, missing := r.req.Reference.Reactions.Filter(proposed.Difference(r.working))
		for _, id := range missing {
			r.p.opts.logger.Warn("suggested reaction not in reference, skipped", "stage", s.Name(), "reaction", id)
		}
		r.working.Update(fresh)
		r.collected.Update(fresh)
		for _, id := range fresh.Sorted() {
			r.provenance.Attribute(id, s.Source())
		}

		res, err := r.probe(ctx, s.Name())
		if err != nil {
			return err
		}
		grew = res.Grew
		r.stages = append(r.stages, StageReport{
			Name:           s.Name(),
			Source:         s.Source(),
			Proposed:       proposed.Len(),
			Added:          fresh.Len(),
			WorkingSetSize: r.working.Len(),
			Grew:           res.Grew,
			ObjectiveValue: res.ObjectiveValue,
			Skipped:        missing,
		})
		r.p.opts.logger.Info("stage complete", "stage", s.Name(), "added", fresh.Len(), "biomass", res.ObjectiveValue, "growth", res.Grew)
		return nil
	})
	return grew, err
}

func (r *suggestRun) probe(ctx context.Context, stage string) (domain.OracleResult, error) {
	res, err := r.p.oracle.Run(ctx, domain.OracleRequest{
		Reference: r.req.Reference.Reactions,
		Active:    r.working.Clone(),
		Medium:    r.req.Medium,
		Biomass:   r.req.Reference.Biomass,
	})
	if err != nil {
		return domain.OracleResult{}, fmt.Errorf("oracle run after %s: %w", stage, err)
	}
	if err := res.CheckStatus(stage); err != nil {
		return domain.OracleResult{}, err
	}
	r.objective = res.ObjectiveValue
	return res, nil
}

func (r *suggestRun) result() Suggestion {
	roles := domain.NewRoleSet()
	if r.p.roles != nil && r.collected.Len() > 0 {
		for _, rs := range r.p.roles.ReactionsToRoles(r.collected) {
			roles.Update(rs)
		}
	}
	return Suggestion{
		MissingReactions: r.collected,
		MissingRoles:     roles,
		Provenance:       r.provenance,
		Stages:           r.stages,
		State:            r.state,
		Grew:             r.grew,
		ObjectiveValue:   r.objective,
		Skipped:          r.skipped,
	}
}
