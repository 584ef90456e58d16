package gapfill

import (
	"context"
	"sync"
	"time"

	"gapfill/pkg/domain"
)

// scriptedOracle answers plain probes with grows and likelihood runs with
// likelihood (or, when nil, unit flux on every active reaction).
type scriptedOracle struct {
	mu         sync.Mutex
	grows      func(req domain.OracleRequest) bool
	likelihood func(req domain.OracleRequest) domain.OracleResult
	status     domain.OracleStatus
	calls      []domain.OracleRequest
}

func (o *scriptedOracle) Run(_ context.Context, req domain.OracleRequest) (domain.OracleResult, error) {
	o.mu.Lock()
	o.calls = append(o.calls, req)
	o.mu.Unlock()
	if o.status != "" {
		return domain.OracleResult{Status: o.status}, nil
	}
	if req.Likelihood != nil {
		if o.likelihood != nil {
			return o.likelihood(req), nil
		}
		fluxes := domain.FluxResult{domain.BiomassID: 1}
		for id := range req.Active {
			fluxes[id] = 1
		}
		return domain.OracleResult{Status: domain.StatusOptimal, Grew: true, ObjectiveValue: 1, Fluxes: fluxes}, nil
	}
	grew := o.grows != nil && o.grows(req)
	res := domain.OracleResult{Status: domain.StatusOptimal, Grew: grew, Fluxes: domain.FluxResult{}}
	if grew {
		res.ObjectiveValue = 1
		res.Fluxes[domain.BiomassID] = 1
	}
	return res, nil
}

func (o *scriptedOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

func growsWith(id string) func(domain.OracleRequest) bool {
	return func(req domain.OracleRequest) bool { return req.Active.Has(id) }
}

// testReference builds a small reference:
//
//	R1  A -> B              forward, draft reaction
//	R2  B[e] -> B           transport, proposed by the media stage
//	R3  B <=> C             bidirectional
//	RV  C <- D              reverse-only
//	E1  C -> D              essential
//	T1  A[e] -> A           forward transport with a negative lower bound
func testReference() *domain.Reference {
	table := domain.NewReactionTable(
		domain.Reaction{ID: "R1", Stoichiometry: map[string]float64{"A": -1, "B": 1}, Direction: domain.DirectionForward, UpperBound: 1000},
		domain.Reaction{ID: "R2", Stoichiometry: map[string]float64{"B_e": -1, "B": 1}, Compartments: map[string]string{"B_e": "e"}, Direction: domain.DirectionForward, UpperBound: 1000, IsTransport: true},
		domain.Reaction{ID: "R3", Stoichiometry: map[string]float64{"B": -1, "C": 1}, Direction: domain.DirectionBidirectional, LowerBound: -1000, UpperBound: 1000, HasProteins: true},
		domain.Reaction{ID: "RV", Stoichiometry: map[string]float64{"C": -1, "D": 1}, Direction: domain.DirectionReverse, LowerBound: -500},
		domain.Reaction{ID: "E1", Stoichiometry: map[string]float64{"C": -1, "D": 1}, Direction: domain.DirectionForward, UpperBound: 1000},
		domain.Reaction{ID: "T1", Stoichiometry: map[string]float64{"A_e": -1, "A": 1}, Compartments: map[string]string{"A_e": "e"}, Direction: domain.DirectionForward, LowerBound: -5, UpperBound: 10, IsTransport: true},
	)
	return &domain.Reference{
		Organism:   domain.GramNegative,
		Reactions:  table,
		Subsystems: map[string]domain.ReactionSet{},
		Essentials: domain.NewReactionSet("E1"),
		Biomass:    domain.Reaction{ID: domain.BiomassID, Stoichiometry: map[string]float64{"D": -1}},
	}
}

// minimalMedium only carries B, so only R2 is a media candidate.
func minimalMedium() domain.Medium { return domain.NewMedium("minimal", "B_e") }

type roleMap map[string]domain.ReactionSet

func (m roleMap) RolesToReactions(roles domain.RoleSet) map[string]domain.ReactionSet {
	out := make(map[string]domain.ReactionSet)
	for role := range roles {
		if rs, ok := m[role]; ok {
			out[role] = rs.Clone()
		}
	}
	return out
}

func (m roleMap) ReactionsToRoles(ids domain.ReactionSet) map[string]domain.RoleSet {
	out := make(map[string]domain.RoleSet)
	for role, rs := range m {
		for id := range rs {
			if ids.Has(id) {
				if out[id] == nil {
					out[id] = domain.NewRoleSet()
				}
				out[id].Add(role)
			}
		}
	}
	return out
}

type captureMetrics struct {
	mu  sync.Mutex
	ops []string
	ok  map[string]bool
}

func (c *captureMetrics) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ok == nil {
		c.ok = make(map[string]bool)
	}
	c.ops = append(c.ops, op)
	c.ok[op] = success
}

type captureLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(string, ...any)  {}
func (l *captureLogger) Error(string, ...any) {}
func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func fixedClock() Clock {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return ClockFunc(func() time.Time { return t })
}
