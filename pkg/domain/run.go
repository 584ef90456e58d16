package domain

import "time"

// RunKind distinguishes the recorded operations.
type RunKind string

// Run kinds recorded in the run ledger.
const (
	RunSuggest RunKind = "suggest"
	RunGapfill RunKind = "gapfill"
	RunPredict RunKind = "predict"
)

// StageSummary is the persisted form of one suggestion stage.
type StageSummary struct {
	Name           string  `json:"name"`
	Source         string  `json:"source"`
	Proposed       int     `json:"proposed"`
	Added          int     `json:"added"`
	WorkingSetSize int     `json:"working_set_size"`
	Grew           bool    `json:"grew"`
	ObjectiveValue float64 `json:"objective_value"`
}

// RunRecord is the ledger entry for one run on one medium.
type RunRecord struct {
	ID          string            `json:"id"`
	Kind        RunKind           `json:"kind"`
	Medium      string            `json:"medium"`
	Organism    OrganismType      `json:"organism"`
	State       string            `json:"state"`
	Grew        bool              `json:"grew"`
	BiomassFlux float64           `json:"biomass_flux"`
	Suggested   []string          `json:"suggested,omitempty"`
	Added       []string          `json:"added,omitempty"`
	Provenance  map[string]string `json:"provenance,omitempty"`
	Stages      []StageSummary    `json:"stages,omitempty"`
	Error       string            `json:"error,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// Clone returns a deep copy of the record.
func (r RunRecord) Clone() RunRecord {
	out := r
	out.Suggested = append([]string(nil), r.Suggested...)
	out.Added = append([]string(nil), r.Added...)
	out.Stages = append([]StageSummary(nil), r.Stages...)
	if r.Provenance != nil {
		out.Provenance = make(map[string]string, len(r.Provenance))
		for k, v := range r.Provenance {
			out.Provenance[k] = v
		}
	}
	return out
}
