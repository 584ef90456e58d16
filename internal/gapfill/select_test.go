package gapfill

import (
	"context"
	"errors"
	"testing"

	"gapfill/pkg/domain"
)

func fluxOracle(fluxes domain.FluxResult) *scriptedOracle {
	return &scriptedOracle{likelihood: func(domain.OracleRequest) domain.OracleResult {
		return domain.OracleResult{Status: domain.StatusOptimal, Fluxes: fluxes}
	}}
}

func selectReq(ref *domain.Reference) SelectRequest {
	return SelectRequest{
		Reference:  ref,
		Original:   domain.NewReactionSet("R1"),
		Candidates: domain.NewReactionSet("R2"),
		Medium:     minimalMedium(),
		Essential:  ref.Essentials,
	}
}

func TestSelectorThreshold(t *testing.T) {
	ref := testReference()
	for _, tc := range []struct {
		biomass float64
		grew    bool
	}{{0.999, false}, {1.0, true}, {3, true}} {
		sel, err := NewSelector(fluxOracle(domain.FluxResult{domain.BiomassID: tc.biomass, "R2": 1}), 0).Select(context.Background(), selectReq(ref))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if sel.Grew != tc.grew || sel.BiomassFlux != tc.biomass {
			t.Fatalf("biomass %g: grew=%t, want %t", tc.biomass, sel.Grew, tc.grew)
		}
	}
}

func TestSelectorFoldsSplitIDsForwardFirst(t *testing.T) {
	ref := testReference()
	fluxes := domain.FluxResult{
		domain.BiomassID:                        1,
		"R1":                                    4,
		"R3_r":                                  5,
		"R3_f":                                  2,
		"R2":                                    0,
		domain.UptakeSecretionMarker + " B_e":   -1,
		"orphan_f":                              1,
	}
	sel, err := NewSelector(fluxOracle(fluxes), 1).Select(context.Background(), selectReq(ref))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !sel.Added.Equal(domain.NewReactionSet("R3", "orphan_f")) {
		t.Fatalf("unexpected added %v", sel.Added.Sorted())
	}
	if sel.Fluxes["R3"] != 2 {
		t.Fatalf("forward variant must win the collision, got %g", sel.Fluxes["R3"])
	}
	if sel.Running != 4 {
		t.Fatalf("expected 4 running reactions, got %d", sel.Running)
	}
}

func TestSelectorPassesLikelihoodRequest(t *testing.T) {
	ref := testReference()
	oracle := fluxOracle(domain.FluxResult{domain.BiomassID: 1})
	obj := domain.Objective{Coefficients: map[string]float64{"R2": 0.4}}
	req := selectReq(ref)
	req.Objective = obj
	if _, err := NewSelector(oracle, 1).Select(context.Background(), req); err != nil {
		t.Fatalf("select: %v", err)
	}
	got := oracle.calls[0]
	if got.Likelihood == nil || !got.Active.Equal(domain.NewReactionSet("R1", "R2")) || !got.Likelihood.Essential.Has("E1") {
		t.Fatalf("unexpected oracle request %+v", got)
	}
}

func TestSelectorSurfacesStatus(t *testing.T) {
	_, err := NewSelector(&scriptedOracle{status: domain.StatusUnbounded}, 1).Select(context.Background(), selectReq(testReference()))
	var statusErr *domain.OracleStatusError
	if !errors.As(err, &statusErr) || statusErr.Stage != "select" {
		t.Fatalf("expected OracleStatusError from select, got %v", err)
	}
	if _, err := NewSelector(nil, 1).Select(context.Background(), selectReq(testReference())); !errors.Is(err, ErrNoOracle) {
		t.Fatalf("expected ErrNoOracle, got %v", err)
	}
}
