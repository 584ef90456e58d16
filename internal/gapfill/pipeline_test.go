package gapfill

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gapfill/pkg/domain"
)

func suggestReq() SuggestRequest {
	return SuggestRequest{
		Reference: testReference(),
		Draft:     domain.NewReactionSet("R1"),
		Medium:    minimalMedium(),
	}
}

func TestSuggestStopsAfterMediaStage(t *testing.T) {
	metrics := &captureMetrics{}
	p := NewDefaultPipeline(&scriptedOracle{grows: growsWith("R2")}, nil, Evidence{}, WithMetricsRecorder(metrics))
	sug, err := p.Suggest(context.Background(), suggestReq())
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if !sug.MissingReactions.Equal(domain.NewReactionSet("R2")) {
		t.Fatalf("unexpected missing reactions %v", sug.MissingReactions.Sorted())
	}
	if !reflect.DeepEqual(sug.Provenance, domain.ProvenanceMap{"R2": SourceMedia}) {
		t.Fatalf("unexpected provenance %v", sug.Provenance)
	}
	if sug.State != StateGrowthAchieved || !sug.Grew || len(sug.Stages) != 1 {
		t.Fatalf("expected growth after the first stage, got %s with %d stages", sug.State, len(sug.Stages))
	}
	for _, op := range metrics.ops {
		if op == "stage.essential" || op == "stage.close_genomes" {
			t.Fatalf("stage after growth was invoked: %v", metrics.ops)
		}
	}
	if sug.MissingReactions.Has("E1") {
		t.Fatalf("essential reaction leaked past the short-circuit")
	}
}

func TestSuggestInitialGrowthProposesNothing(t *testing.T) {
	oracle := &scriptedOracle{grows: func(domain.OracleRequest) bool { return true }}
	sug, err := NewDefaultPipeline(oracle, nil, Evidence{}).Suggest(context.Background(), suggestReq())
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if sug.State != StateGrowthAchieved || sug.MissingReactions.Len() != 0 || len(sug.Stages) != 0 || oracle.callCount() != 1 {
		t.Fatalf("unexpected suggestion %+v after %d calls", sug, oracle.callCount())
	}
}

func TestSuggestProvenanceFirstWriterWins(t *testing.T) {
	ref := testReference()
	ref.Essentials.Add("R2")
	req := suggestReq()
	req.Reference = ref
	sug, err := NewDefaultPipeline(&scriptedOracle{grows: growsWith("E1")}, nil, Evidence{}).Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if sug.Provenance["R2"] != SourceMedia || sug.Provenance["E1"] != SourceEssential {
		t.Fatalf("unexpected provenance %v", sug.Provenance)
	}
}

func TestSuggestWorkingSetNeverShrinks(t *testing.T) {
	p := NewDefaultPipeline(&scriptedOracle{}, nil, Evidence{})
	sug, err := p.Suggest(context.Background(), suggestReq())
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if sug.State != StateAllStagesExhausted || sug.Grew {
		t.Fatalf("expected exhaustion, got %s", sug.State)
	}
	if len(sug.Stages) != len(p.Strategies()) {
		t.Fatalf("expected every stage to run, got %d", len(sug.Stages))
	}
	prev := 1
	for _, st := range sug.Stages {
		if st.WorkingSetSize < prev {
			t.Fatalf("working set shrank at %s: %d < %d", st.Name, st.WorkingSetSize, prev)
		}
		prev = st.WorkingSetSize
	}
}

func TestSuggestIsIdempotent(t *testing.T) {
	mapper := roleMap{"Transporter": domain.NewReactionSet("R2"), "Isomerase": domain.NewReactionSet("R3")}
	run := func() Suggestion {
		p := NewDefaultPipeline(&scriptedOracle{}, mapper, Evidence{CloseRoles: domain.NewRoleSet("Isomerase")})
		sug, err := p.Suggest(context.Background(), suggestReq())
		if err != nil {
			t.Fatalf("suggest: %v", err)
		}
		return sug
	}
	a, b := run(), run()
	if !a.MissingReactions.Equal(b.MissingReactions) || !a.MissingRoles.Equal(b.MissingRoles) || !reflect.DeepEqual(a.Provenance, b.Provenance) {
		t.Fatalf("suggestions differ:\n%v\n%v", a.Provenance, b.Provenance)
	}
	if a.Provenance["R3"] != SourceClose || !a.MissingRoles.Has("Transporter") {
		t.Fatalf("unexpected suggestion %v roles %v", a.Provenance, a.MissingRoles.Sorted())
	}
}

func TestSuggestSurfacesOracleFailure(t *testing.T) {
	_, err := NewDefaultPipeline(&scriptedOracle{status: domain.StatusInfeasible}, nil, Evidence{}).Suggest(context.Background(), suggestReq())
	var statusErr *domain.OracleStatusError
	if !errors.As(err, &statusErr) || statusErr.Status != domain.StatusInfeasible {
		t.Fatalf("expected OracleStatusError, got %v", err)
	}
}

type failingStrategy struct{}

func (failingStrategy) Name() string   { return "broken" }
func (failingStrategy) Source() string { return "broken" }
func (failingStrategy) Suggest(context.Context, StageInput) (domain.ReactionSet, error) {
	return nil, errors.New("evidence unavailable")
}

func TestSuggestWrapsStageErrors(t *testing.T) {
	p := NewPipeline(&scriptedOracle{}, nil)
	p.Register(failingStrategy{})
	_, err := p.Suggest(context.Background(), suggestReq())
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "broken" {
		t.Fatalf("expected StageError, got %v", err)
	}
}

func TestSuggestValidatesInput(t *testing.T) {
	p := NewDefaultPipeline(&scriptedOracle{}, nil, Evidence{})
	req := suggestReq()
	req.Draft = domain.NewReactionSet()
	if _, err := p.Suggest(context.Background(), req); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("expected ErrEmptyDraft, got %v", err)
	}
	req = suggestReq()
	req.Draft = domain.NewReactionSet("unknown")
	if _, err := p.Suggest(context.Background(), req); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("expected ErrEmptyDraft for unknown-only draft, got %v", err)
	}
	req = suggestReq()
	req.Medium = domain.NewMedium("empty")
	if _, err := p.Suggest(context.Background(), req); !errors.Is(err, ErrEmptyMedium) {
		t.Fatalf("expected ErrEmptyMedium, got %v", err)
	}
	if _, err := NewDefaultPipeline(nil, nil, Evidence{}).Suggest(context.Background(), suggestReq()); !errors.Is(err, ErrNoOracle) {
		t.Fatalf("expected ErrNoOracle, got %v", err)
	}
}

func TestSuggestSkipsUnknownDraftReactions(t *testing.T) {
	logger := &captureLogger{}
	req := suggestReq()
	req.Draft.Add("ghost")
	sug, err := NewDefaultPipeline(&scriptedOracle{grows: growsWith("R2")}, nil, Evidence{}, WithLogger(logger)).Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(sug.Skipped) != 1 || sug.Skipped[0] != "ghost" || len(logger.warns) == 0 {
		t.Fatalf("expected ghost to be skipped with a warning: %v %v", sug.Skipped, logger.warns)
	}
}

func TestStateTerminal(t *testing.T) {
	if StateInitial.Terminal() || StateStageRunning.Terminal() {
		t.Fatalf("non-terminal states reported terminal")
	}
	if !StateGrowthAchieved.Terminal() || !StateAllStagesExhausted.Terminal() {
		t.Fatalf("terminal states not reported terminal")
	}
	if State(42).String() != "state(42)" {
		t.Fatalf("unexpected string %q", State(42).String())
	}
}
