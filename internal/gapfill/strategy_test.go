package gapfill

import (
	"context"
	"testing"

	"gapfill/pkg/domain"
)

// withReactions returns ref with extra reactions appended to its table.
func withReactions(ref *domain.Reference, extra ...domain.Reaction) *domain.Reference {
	var all []domain.Reaction
	ref.Reactions.Each(func(r *domain.Reaction) bool {
		all = append(all, *r)
		return true
	})
	ref.Reactions = domain.NewReactionTable(append(all, extra...)...)
	return ref
}

func suggestWith(t *testing.T, s Strategy, ref *domain.Reference, working domain.ReactionSet, medium domain.Medium) domain.ReactionSet {
	t.Helper()
	got, err := s.Suggest(context.Background(), StageInput{Reference: ref, Working: working, Medium: medium, Biomass: ref.Biomass})
	if err != nil {
		t.Fatalf("%s: %v", s.Name(), err)
	}
	return got
}

func TestMediaStrategyProposesExtracellularTransport(t *testing.T) {
	ref := withReactions(testReference(),
		domain.Reaction{ID: "T3", Stoichiometry: map[string]float64{"C": -1, "C_p": 1}, Direction: domain.DirectionForward, UpperBound: 1000, IsTransport: true},
	)
	medium := domain.NewMedium("rich", "A_e", "B_e", "C")

	got := suggestWith(t, NewMediaStrategy(), ref, domain.NewReactionSet("R1"), medium)
	if !got.Equal(domain.NewReactionSet("R2", "T1")) {
		t.Fatalf("unexpected media suggestions %v", got.Sorted())
	}

	got = suggestWith(t, NewMediaStrategy(), ref, domain.NewReactionSet("R1", "T1"), medium)
	if !got.Equal(domain.NewReactionSet("R2")) {
		t.Fatalf("already transported compound proposed again: %v", got.Sorted())
	}
}

func TestSubsystemStrategyRequiresMoreThanThreshold(t *testing.T) {
	ref := testReference()
	ref.Subsystems = map[string]domain.ReactionSet{
		"half": domain.NewReactionSet("R1", "R3"),
		"most": domain.NewReactionSet("R1", "T1", "RV", "ZZ"),
	}
	got := suggestWith(t, NewSubsystemStrategy(DefaultSubsystemThreshold), ref, domain.NewReactionSet("R1", "T1"), minimalMedium())
	if !got.Equal(domain.NewReactionSet("RV")) {
		t.Fatalf("unexpected subsystem suggestions %v", got.Sorted())
	}

	ref.Subsystems = map[string]domain.ReactionSet{"half": domain.NewReactionSet("R1", "R3")}
	if got := suggestWith(t, NewSubsystemStrategy(DefaultSubsystemThreshold), ref, domain.NewReactionSet("R1"), minimalMedium()); got.Len() != 0 {
		t.Fatalf("subsystem at exactly 50%% must not be completed: %v", got.Sorted())
	}
}

func TestOrphanStrategyCapsPerCompound(t *testing.T) {
	ref := testReference()
	ref.Reactions = domain.NewReactionTable(
		domain.Reaction{ID: "R1", Stoichiometry: map[string]float64{"A": -1, "X": 1}, Direction: domain.DirectionForward, UpperBound: 1000},
		domain.Reaction{ID: "C2", Stoichiometry: map[string]float64{"X": -1, "Z": 1}, Direction: domain.DirectionForward, UpperBound: 1000},
		domain.Reaction{ID: "C1", Stoichiometry: map[string]float64{"X": -1, "Y": 1}, Direction: domain.DirectionForward, UpperBound: 1000},
	)
	working := domain.NewReactionSet("R1")

	got := suggestWith(t, NewOrphanStrategy(DefaultOrphanMaxReactions), ref, working, minimalMedium())
	if !got.Equal(domain.NewReactionSet("C1")) {
		t.Fatalf("expected one reaction for orphan X, got %v", got.Sorted())
	}
	got = suggestWith(t, NewOrphanStrategy(0), ref, working, minimalMedium())
	if !got.Equal(domain.NewReactionSet("C1", "C2")) {
		t.Fatalf("uncapped stage should propose every connecting reaction, got %v", got.Sorted())
	}
}

func TestOrphanStrategyOnReference(t *testing.T) {
	// A and B are each touched once by R1; T1 connects A, R2 and R3 connect B.
	got := suggestWith(t, NewOrphanStrategy(1), testReference(), domain.NewReactionSet("R1"), minimalMedium())
	if !got.Equal(domain.NewReactionSet("R2", "T1")) {
		t.Fatalf("unexpected orphan suggestions %v", got.Sorted())
	}
}

func TestCompoundProbabilityStrategy(t *testing.T) {
	ref := testReference()
	working := domain.NewReactionSet("R1")

	got := suggestWith(t, NewCompoundProbabilityStrategy(0, true), ref, working, minimalMedium())
	if !got.Equal(domain.NewReactionSet("R3")) {
		t.Fatalf("protein filter: unexpected suggestions %v", got.Sorted())
	}
	got = suggestWith(t, NewCompoundProbabilityStrategy(0, false), ref, working, minimalMedium())
	if !got.Equal(domain.NewReactionSet("R2", "R3", "T1")) {
		t.Fatalf("cutoff 0 must keep any reaction sharing a compound, got %v", got.Sorted())
	}
	if got := suggestWith(t, NewCompoundProbabilityStrategy(0.5, false), ref, working, minimalMedium()); got.Len() != 0 {
		t.Fatalf("cutoff is exclusive, got %v", got.Sorted())
	}
}

func TestRolesStrategies(t *testing.T) {
	mapper := roleMap{"Isomerase": domain.NewReactionSet("R3", "not_in_reference")}
	roles := domain.NewRoleSet("Isomerase", "Unknown role")

	closeStage := NewCloseGenomesStrategy(roles, mapper)
	if closeStage.Name() != "close_genomes" || closeStage.Source() != SourceClose {
		t.Fatalf("unexpected close stage identity %s/%s", closeStage.Name(), closeStage.Source())
	}
	if got := suggestWith(t, closeStage, testReference(), domain.NewReactionSet("R1"), minimalMedium()); !got.Equal(domain.NewReactionSet("R3")) {
		t.Fatalf("unexpected close suggestions %v", got.Sorted())
	}

	genus := NewGenusStrategy(roles, nil)
	if genus.Source() != SourceGenus {
		t.Fatalf("unexpected genus source %s", genus.Source())
	}
	if got := suggestWith(t, genus, testReference(), domain.NewReactionSet("R1"), minimalMedium()); got.Len() != 0 {
		t.Fatalf("genus stage without a mapper proposed %v", got.Sorted())
	}
}

func TestEssentialStrategyReturnsCopy(t *testing.T) {
	ref := testReference()
	got := suggestWith(t, NewEssentialStrategy(), ref, domain.NewReactionSet("R1"), minimalMedium())
	if !got.Equal(domain.NewReactionSet("E1")) {
		t.Fatalf("unexpected essential suggestions %v", got.Sorted())
	}
	got.Add("R9")
	if ref.Essentials.Has("R9") {
		t.Fatalf("essential suggestions alias the reference set")
	}
}

func TestStrategiesHonourCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := StageInput{Reference: testReference(), Working: domain.NewReactionSet("R1"), Medium: domain.NewMedium("rich", "A_e")}
	for _, s := range []Strategy{NewMediaStrategy(), NewOrphanStrategy(1), NewCompoundProbabilityStrategy(0, false)} {
		if _, err := s.Suggest(ctx, in); err == nil {
			t.Fatalf("%s ignored a cancelled context", s.Name())
		}
	}
}
