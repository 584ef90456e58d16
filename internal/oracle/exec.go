package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"gapfill/pkg/domain"
)

// Exec runs an external solver for every request. The request is written to
// the process's stdin as JSON and the result is read from its stdout.
type Exec struct {
	Command string
	Args    []string
	// Env is appended to the solver's environment.
	Env []string
}

var _ domain.Oracle = (*Exec)(nil)

// NewExec splits a command line on whitespace.
func NewExec(commandLine string) (*Exec, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, errors.New("exec oracle: empty command")
	}
	return &Exec{Command: fields[0], Args: fields[1:]}, nil
}

// ExecReaction is the wire form of one active reaction.
type ExecReaction struct {
	ID            string             `json:"id"`
	Stoichiometry map[string]float64 `json:"stoichiometry"`
	LowerBound    float64            `json:"lower_bound"`
	UpperBound    float64            `json:"upper_bound"`
}

// ExecLikelihood is the wire form of a likelihood request.
type ExecLikelihood struct {
	Coefficients map[string]float64 `json:"coefficients"`
	Original     []string           `json:"original"`
	Essential    []string           `json:"essential"`
}

// ExecRequest is written to the solver's stdin.
type ExecRequest struct {
	Medium     []string        `json:"medium"`
	Biomass    ExecReaction    `json:"biomass"`
	Reactions  []ExecReaction  `json:"reactions"`
	Likelihood *ExecLikelihood `json:"likelihood,omitempty"`
}

// ExecResponse is read from the solver's stdout.
type ExecResponse struct {
	Status         string             `json:"status"`
	ObjectiveValue float64            `json:"objective_value"`
	Fluxes         map[string]float64 `json:"fluxes"`
}

// EncodeRequest converts req to its wire form. Active identifiers missing
// from the reference table are dropped.
func EncodeRequest(req domain.OracleRequest) (ExecRequest, error) {
	if req.Reference == nil {
		return ExecRequest{}, ErrNoReference
	}
	out := ExecRequest{
		Medium:    req.Medium.Compounds.Sorted(),
		Biomass:   wireReaction(req.Biomass),
		Reactions: make([]ExecReaction, 0, req.Active.Len()),
	}
	for _, id := range req.Active.Sorted() {
		if r, ok := req.Reference.Lookup(id); ok {
			out.Reactions = append(out.Reactions, wireReaction(*r))
		}
	}
	if lk := req.Likelihood; lk != nil {
		out.Likelihood = &ExecLikelihood{
			Coefficients: lk.Objective.Coefficients,
			Original:     lk.Original.Sorted(),
			Essential:    lk.Essential.Sorted(),
		}
	}
	return out, nil
}

func wireReaction(r domain.Reaction) ExecReaction {
	return ExecReaction{ID: r.ID, Stoichiometry: r.Stoichiometry, LowerBound: r.LowerBound, UpperBound: r.UpperBound}
}

// Run implements domain.Oracle.
func (e *Exec) Run(ctx context.Context, req domain.OracleRequest) (domain.OracleResult, error) {
	wire, err := EncodeRequest(req)
	if err != nil {
		return domain.OracleResult{}, err
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return domain.OracleResult{}, fmt.Errorf("encode oracle request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return domain.OracleResult{}, fmt.Errorf("run solver %s: %w: %s", e.Command, err, strings.TrimSpace(stderr.String()))
	}
	return DecodeResponse(stdout.Bytes())
}

// DecodeResponse parses solver output. A missing status is an error.
func DecodeResponse(data []byte) (domain.OracleResult, error) {
	var resp ExecResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return domain.OracleResult{}, fmt.Errorf("decode oracle response: %w", err)
	}
	if resp.Status == "" {
		return domain.OracleResult{}, errors.New("decode oracle response: missing status")
	}
	fluxes := domain.FluxResult(resp.Fluxes)
	if fluxes == nil {
		fluxes = domain.FluxResult{}
	}
	return domain.OracleResult{
		Status:         domain.OracleStatus(strings.ToLower(resp.Status)),
		ObjectiveValue: resp.ObjectiveValue,
		Grew:           fluxes[domain.BiomassID] > 0,
		Fluxes:         fluxes,
	}, nil
}
