package oracle

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"gapfill/pkg/domain"
)

func linearTable() *domain.ReactionTable {
	return domain.NewReactionTable(
		domain.Reaction{ID: "R1", Stoichiometry: map[string]float64{"A": -1, "B": 1}, Direction: domain.DirectionForward, UpperBound: 1000},
		domain.Reaction{ID: "R2", Stoichiometry: map[string]float64{"B": -1, "C": 1}, Direction: domain.DirectionForward, UpperBound: 1000},
		domain.Reaction{ID: "R2alt", Stoichiometry: map[string]float64{"B": -1, "C": 1}, Direction: domain.DirectionForward, UpperBound: 1000},
		domain.Reaction{ID: "R3", Stoichiometry: map[string]float64{"C": -1, "B": 1}, Direction: domain.DirectionReverse, LowerBound: -1000},
	)
}

func biomass() domain.Reaction {
	return domain.Reaction{ID: domain.BiomassID, Stoichiometry: map[string]float64{"C": -1}}
}

func request(active ...string) domain.OracleRequest {
	return domain.OracleRequest{
		Reference: linearTable(),
		Active:    domain.NewReactionSet(active...),
		Medium:    domain.NewMedium("min", "A"),
		Biomass:   biomass(),
	}
}

func TestExpansionGrowth(t *testing.T) {
	ctx := context.Background()
	res, err := NewExpansion().Run(ctx, request("R1"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Grew || res.Status != domain.StatusOptimal || res.ObjectiveValue != 0 {
		t.Fatalf("R1 alone should not grow: %+v", res)
	}

	res, err = NewExpansion().Run(ctx, request("R1", "R2"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Grew || res.Fluxes[domain.BiomassID] != DefaultBiomassFlux || res.Fluxes["R2"] != 1 {
		t.Fatalf("expected growth through R2: %+v", res)
	}
	if res.Fluxes[domain.UptakeSecretionMarker+" A"] != -1 {
		t.Fatalf("expected uptake flux for A: %v", res.Fluxes)
	}
}

func TestExpansionRunsReverseReactionsBackward(t *testing.T) {
	res, err := NewExpansion().Run(context.Background(), request("R1", "R3"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Grew || res.Fluxes["R3"] != -1 {
		t.Fatalf("expected R3 to run backward: %+v", res)
	}
}

func TestExpansionLikelihoodPrunesCheapestFirst(t *testing.T) {
	req := request("R1", "R2", "R2alt")
	req.Likelihood = &domain.LikelihoodRequest{
		Objective: domain.Objective{Coefficients: map[string]float64{"R2": 0.9, "R2alt": 0.1}},
		Original:  domain.NewReactionSet("R1"),
		Essential: domain.NewReactionSet(),
	}
	res, err := NewExpansion().Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Grew || res.ObjectiveValue != 0.9 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok := res.Fluxes["R2alt"]; ok {
		t.Fatalf("R2alt should have been pruned: %v", res.Fluxes)
	}
	if res.Fluxes["R1"] != 1 {
		t.Fatalf("original reaction must stay active: %v", res.Fluxes)
	}
}

func TestExpansionRequiresReference(t *testing.T) {
	req := request("R1")
	req.Reference = nil
	if _, err := NewExpansion().Run(context.Background(), req); !errors.Is(err, ErrNoReference) {
		t.Fatalf("expected ErrNoReference, got %v", err)
	}
}

type countingOracle struct {
	calls  int
	status domain.OracleStatus
}

func (c *countingOracle) Run(_ context.Context, _ domain.OracleRequest) (domain.OracleResult, error) {
	c.calls++
	return domain.OracleResult{Status: c.status, Fluxes: domain.FluxResult{domain.BiomassID: 1}, Grew: true}, nil
}

func TestCachedMemoisesPlainProbes(t *testing.T) {
	inner := &countingOracle{status: domain.StatusOptimal}
	cached, err := NewCached(inner, 8)
	if err != nil {
		t.Fatalf("new cached: %v", err)
	}
	ctx := context.Background()
	first, _ := cached.Run(ctx, request("R1", "R2"))
	first.Fluxes["mutated"] = 5
	second, _ := cached.Run(ctx, request("R2", "R1"))
	if inner.calls != 1 || cached.Len() != 1 {
		t.Fatalf("expected one inner call, got %d", inner.calls)
	}
	if _, leaked := second.Fluxes["mutated"]; leaked {
		t.Fatalf("cached fluxes must be copied")
	}

	req := request("R1", "R2")
	req.Likelihood = &domain.LikelihoodRequest{}
	_, _ = cached.Run(ctx, req)
	_, _ = cached.Run(ctx, req)
	if inner.calls != 3 {
		t.Fatalf("likelihood requests must bypass the cache, calls=%d", inner.calls)
	}

	changed := request("R1", "R2")
	if _, err := changed.Reference.ReverseInPlace("R2"); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	_, _ = cached.Run(ctx, changed)
	if inner.calls != 4 {
		t.Fatalf("changed bounds must miss the cache, calls=%d", inner.calls)
	}
}

func TestCachedSkipsFailedStatus(t *testing.T) {
	inner := &countingOracle{status: domain.StatusInfeasible}
	cached, _ := NewCached(inner, 0)
	_, _ = cached.Run(context.Background(), request("R1"))
	_, _ = cached.Run(context.Background(), request("R1"))
	if inner.calls != 2 || cached.Len() != 0 {
		t.Fatalf("non-optimal results must not be cached")
	}
}

func TestEncodeRequest(t *testing.T) {
	req := request("R2", "R1", "missing")
	req.Likelihood = &domain.LikelihoodRequest{
		Objective: domain.Objective{Coefficients: map[string]float64{"R2": 0.5}},
		Original:  domain.NewReactionSet("R1"),
	}
	wire, err := EncodeRequest(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(wire.Reactions) != 2 || wire.Reactions[0].ID != "R1" || wire.Medium[0] != "A" {
		t.Fatalf("unexpected wire request %+v", wire)
	}
	if wire.Likelihood == nil || wire.Likelihood.Original[0] != "R1" {
		t.Fatalf("likelihood not encoded")
	}
}

func TestDecodeResponse(t *testing.T) {
	res, err := DecodeResponse([]byte(`{"status":"Optimal","objective_value":1.5,"fluxes":{"BIOMASS_EQN":1.5}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != domain.StatusOptimal || !res.Grew {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := DecodeResponse([]byte(`{"fluxes":{}}`)); err == nil {
		t.Fatalf("expected missing status error")
	}
	if _, err := DecodeResponse([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestExecRunsSolverProcess(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("sh not available: %v", err)
	}
	solver := &Exec{Command: "sh", Args: []string{"-c", `cat >/dev/null; echo '{"status":"infeasible","fluxes":{}}'`}}
	res, err := solver.Run(context.Background(), request("R1"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != domain.StatusInfeasible || res.Grew {
		t.Fatalf("unexpected result %+v", res)
	}

	failing := &Exec{Command: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}}
	if _, err := failing.Run(context.Background(), request("R1")); err == nil {
		t.Fatalf("expected solver failure")
	}
	if _, err := NewExec("   "); err == nil {
		t.Fatalf("expected empty command error")
	}
}
