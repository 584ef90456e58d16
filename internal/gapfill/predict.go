package gapfill

import (
	"context"
	"fmt"
	"sort"

	"gapfill/pkg/domain"
)

// PredictRequest is the input of PredictGrowth. Reactions is the model under
// test; Phenotypes maps a medium name to the observed growth.
type PredictRequest struct {
	Reactions  domain.ReactionSet
	Media      []domain.Medium
	Phenotypes map[string]bool
}

// Prediction is the outcome on one medium.
type Prediction struct {
	Medium         string
	Predicted      bool
	Observed       bool
	ObjectiveValue float64
}

// PredictionReport compares simulated growth with observed phenotypes.
type PredictionReport struct {
	Predictions    []Prediction
	TruePositives  []string
	TrueNegatives  []string
	FalsePositives []string
	FalseNegatives []string
	// Agreement is the percentage of media where prediction and observation agree.
	Agreement float64
	// Unobserved lists media without a recorded phenotype; they are not scored.
	Unobserved []string
}

// PredictGrowth runs a plain feasibility probe on every medium and scores the
// outcome against the observed phenotypes.
func (s *Service) PredictGrowth(ctx context.Context, req PredictRequest) (PredictionReport, error) {
	var out PredictionReport
	started := s.opts.clock.Now()
	err := s.opts.observe(ctx, "predict", func(ctx context.Context) error {
		if s.oracle == nil {
			return ErrNoOracle
		}
		active, missing := s.ref.Reactions.Filter(req.Reactions)
		for _, id := range missing {
			s.opts.logger.Warn("model reaction not in reference, skipped", "reaction", id)
		}
		if active.Len() == 0 {
			return ErrEmptyDraft
		}
		for _, medium := range sortedMedia(req.Media) {
			observed, ok := req.Phenotypes[medium.Name]
			if !ok {
				out.Unobserved = append(out.Unobserved, medium.Name)
				continue
			}
			res, err := s.oracle.Run(ctx, domain.OracleRequest{
				Reference: s.ref.Reactions,
				Active:    active,
				Medium:    medium,
				Biomass:   s.ref.Biomass,
			})
			if err != nil {
				return fmt.Errorf("predict %s: %w", medium.Name, err)
			}
			if err := res.CheckStatus("predict"); err != nil {
				return fmt.Errorf("predict %s: %w", medium.Name, err)
			}
			s.opts.logger.Debug("growth predicted", "medium", medium.Name, "biomass", res.ObjectiveValue, "growth", res.Grew)
			out.add(Prediction{Medium: medium.Name, Predicted: res.Grew, Observed: observed, ObjectiveValue: res.ObjectiveValue})
		}
		out.score()
		return nil
	})
	rec := domain.RunRecord{
		ID:         s.newRunID(),
		Kind:       domain.RunPredict,
		Organism:   s.ref.Organism,
		StartedAt:  started,
		FinishedAt: s.opts.clock.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	} else {
		rec.State = fmt.Sprintf("agreement=%.2f", out.Agreement)
	}
	if serr := s.saveRun(ctx, rec); serr != nil && err == nil {
		err = serr
	}
	return out, err
}

func (r *PredictionReport) add(p Prediction) {
	r.Predictions = append(r.Predictions, p)
	switch {
	case p.Predicted && p.Observed:
		r.TruePositives = append(r.TruePositives, p.Medium)
	case !p.Predicted && !p.Observed:
		r.TrueNegatives = append(r.TrueNegatives, p.Medium)
	case p.Predicted:
		r.FalsePositives = append(r.FalsePositives, p.Medium)
	default:
		r.FalseNegatives = append(r.FalseNegatives, p.Medium)
	}
}

func (r *PredictionReport) score() {
	if len(r.Predictions) == 0 {
		return
	}
	agree := len(r.TruePositives) + len(r.TrueNegatives)
	r.Agreement = float64(agree) / float64(len(r.Predictions)) * 100
}

// AddedOnFraction returns the reactions added on more than fraction of the
// media in res, in ascending order.
func (res MultiMediaResult) AddedOnFraction(fraction float64) []string {
	if len(res.Results) == 0 {
		return nil
	}
	var out []string
	total := float64(len(res.Results))
	for id, media := range res.MediaSources {
		if float64(len(media))/total > fraction {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
