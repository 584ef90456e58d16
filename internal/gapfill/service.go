package gapfill

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gapfill/pkg/domain"
)

// ServiceConfig tunes the gap-filling service.
type ServiceConfig struct {
	GrowthThreshold    float64
	DefaultProbability float64
	// Concurrency bounds how many media are gap-filled at once. Values below 1 mean 1.
	Concurrency int
	Evidence    Evidence
}

// Service orchestrates suggestion, normalisation and selection over one or
// more media. Every medium runs against a private copy of the reference
// reaction table.
type Service struct {
	ref      *domain.Reference
	oracle   domain.Oracle
	roles    domain.RoleMapper
	cfg      ServiceConfig
	builder  ObjectiveBuilder
	opts     options
	rawOpts  []Option
	newRunID func() string
}

// NewService constructs a service over the shared reference database.
func NewService(ref *domain.Reference, oracle domain.Oracle, roles domain.RoleMapper, cfg ServiceConfig, opts ...Option) *Service {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.GrowthThreshold <= 0 {
		cfg.GrowthThreshold = DefaultGrowthThreshold
	}
	return &Service{
		ref:      ref,
		oracle:   oracle,
		roles:    roles,
		cfg:      cfg,
		builder:  NewObjectiveBuilder(cfg.DefaultProbability),
		opts:     applyOptions(opts),
		rawOpts:  opts,
		newRunID: uuid.NewString,
	}
}

// Reference returns the shared reference database.
func (s *Service) Reference() *domain.Reference { return s.ref }

// MediumRequest is the input of GapfillMedium.
type MediumRequest struct {
	RunID         string
	Draft         domain.ReactionSet
	DraftRoles    domain.RoleSet
	Medium        domain.Medium
	Probabilities domain.ReactionProbabilities
}

// MediumResult is the outcome of gap-filling one medium.
type MediumResult struct {
	RunID      string
	Medium     string
	Suggestion Suggestion
	Normalized Normalized
	Objective  domain.Objective
	Selection  Selection
}

// GapfillMedium suggests candidates for one medium and selects the
// likelihood-preferred subset that enables growth.
func (s *Service) GapfillMedium(ctx context.Context, req MediumRequest) (MediumResult, error) {
	if req.RunID == "" {
		req.RunID = s.newRunID()
	}
	rec := domain.RunRecord{
		ID:        req.RunID,
		Kind:      domain.RunGapfill,
		Medium:    req.Medium.Name,
		Organism:  s.ref.Organism,
		StartedAt: s.opts.clock.Now(),
	}
	var out MediumResult
	err := s.opts.observe(ctx, "gapfill_medium", func(ctx context.Context) error {
		var err error
		out, err = s.gapfillMedium(ctx, req)
		return err
	})
	rec.FinishedAt = s.opts.clock.Now()
	fillRecord(&rec, out, err)
	if err != nil {
		s.opts.logger.Error("gap-fill failed", "run", req.RunID, "medium", req.Medium.Name, "error", err)
		return out, errors.Join(err, s.saveRun(ctx, rec))
	}
	if err := s.saveRun(ctx, rec); err != nil {
		return out, err
	}
	if err := s.persistMedium(ctx, out); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Service) gapfillMedium(ctx context.Context, req MediumRequest) (MediumResult, error) {
	out := MediumResult{RunID: req.RunID, Medium: req.Medium.Name}
	ref := s.ref.Clone()
	ref.Reactions.Protect(req.Draft)

	pipeline := NewDefaultPipeline(s.oracle, s.roles, s.cfg.Evidence, s.rawOpts...)
	sug, err := pipeline.Suggest(ctx, SuggestRequest{
		Reference:  ref,
		Draft:      req.Draft,
		DraftRoles: req.DraftRoles,
		Medium:     req.Medium,
	})
	if err != nil {
		return out, err
	}
	out.Suggestion = sug
	s.opts.logger.Info("suggested reactions", "medium", req.Medium.Name, "reactions", sug.MissingReactions.Len(), "roles", sug.MissingRoles.Len())

	err = s.opts.observe(ctx, "normalize", func(context.Context) error {
		var err error
		out.Normalized, err = NormalizeDirections(ref.Reactions, sug.MissingReactions, req.Probabilities)
		return err
	})
	if err != nil {
		return out, err
	}
	s.opts.logger.Debug("directions normalised", "reversed", len(out.Normalized.Reversed), "split", len(out.Normalized.Split))

	out.Objective = s.builder.Build(out.Normalized.Probabilities, out.Normalized.Candidates)
	if n := len(out.Objective.Defaulted); n > 0 {
		s.opts.logger.Debug("candidates without probability", "count", n, "weight", s.builder.DefaultProbability)
	}

	selector := NewSelector(s.oracle, s.cfg.GrowthThreshold, s.rawOpts...)
	out.Selection, err = selector.Select(ctx, SelectRequest{
		Reference:  ref,
		Original:   req.Draft,
		Candidates: out.Normalized.Candidates,
		Medium:     req.Medium,
		Objective:  out.Objective,
		Essential:  ref.Essentials,
	})
	return out, err
}

func fillRecord(rec *domain.RunRecord, res MediumResult, err error) {
	rec.State = res.Suggestion.State.String()
	rec.Grew = res.Selection.Grew
	rec.BiomassFlux = res.Selection.BiomassFlux
	if res.Suggestion.MissingReactions != nil {
		rec.Suggested = res.Suggestion.MissingReactions.Sorted()
	}
	if res.Selection.Added != nil {
		rec.Added = res.Selection.Added.Sorted()
	}
	if len(res.Suggestion.Provenance) > 0 {
		rec.Provenance = res.Suggestion.Provenance.Clone()
	}
	rec.Stages = stageSummaries(res.Suggestion.Stages)
	if err != nil {
		rec.Error = err.Error()
	}
}

func stageSummaries(stages []StageReport) []domain.StageSummary {
	if len(stages) == 0 {
		return nil
	}
	out := make([]domain.StageSummary, len(stages))
	for i, st := range stages {
		out[i] = domain.StageSummary{
			Name:           st.Name,
			Source:         st.Source,
			Proposed:       st.Proposed,
			Added:          st.Added,
			WorkingSetSize: st.WorkingSetSize,
			Grew:           st.Grew,
			ObjectiveValue: st.ObjectiveValue,
		}
	}
	return out
}

func (s *Service) saveRun(ctx context.Context, rec domain.RunRecord) error {
	if s.opts.runs == nil {
		return nil
	}
	if err := s.opts.runs.SaveRun(ctx, rec); err != nil {
		s.opts.logger.Error("save run record", "run", rec.ID, "error", err)
		return fmt.Errorf("save run %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Service) persistMedium(ctx context.Context, res MediumResult) error {
	sink := s.opts.arts
	if sink == nil {
		return nil
	}
	steps := []struct {
		name string
		put  func(key string) error
	}{
		{"suggested_reactions", func(k string) error { return sink.PutReactionSet(ctx, k, res.Suggestion.MissingReactions) }},
		{"suggested_roles", func(k string) error { return sink.PutReactionSet(ctx, k, res.Suggestion.MissingRoles) }},
		{"provenance", func(k string) error { return sink.PutProvenance(ctx, k, res.Suggestion.Provenance) }},
		{"added_reactions", func(k string) error { return sink.PutReactionSet(ctx, k, res.Selection.Added) }},
		{"added_fluxes", func(k string) error { return sink.PutFluxes(ctx, k, res.Selection.Fluxes) }},
	}
	for _, step := range steps {
		key := ArtifactKey(res.RunID, res.Medium, step.name)
		if err := step.put(key); err != nil {
			s.opts.logger.Error("persist artifact", "key", key, "error", err)
			return fmt.Errorf("persist %s: %w", key, err)
		}
	}
	return nil
}

// MultiMediaRequest is the input of GapfillMedia.
type MultiMediaRequest struct {
	Draft         domain.ReactionSet
	DraftRoles    domain.RoleSet
	Media         []domain.Medium
	Probabilities domain.ReactionProbabilities
}

// MultiMediaResult merges per-medium results in ascending medium order.
type MultiMediaResult struct {
	BatchID string
	Results []MediumResult
	// Added is the union of reactions added across media.
	Added domain.ReactionSet
	// MediaSources lists, per added reaction, the media that required it.
	MediaSources map[string][]string
}

// GapfillMedia gap-fills every medium, concurrently up to the configured limit.
func (s *Service) GapfillMedia(ctx context.Context, req MultiMediaRequest) (MultiMediaResult, error) {
	media := sortedMedia(req.Media)
	out := MultiMediaResult{
		BatchID:      s.newRunID(),
		Results:      make([]MediumResult, len(media)),
		Added:        domain.NewReactionSet(),
		MediaSources: make(map[string][]string),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, medium := range media {
		g.Go(func() error {
			res, err := s.GapfillMedium(gctx, MediumRequest{
				RunID:         out.BatchID + "-" + sanitizeSegment(medium.Name),
				Draft:         req.Draft.Clone(),
				DraftRoles:    req.DraftRoles.Clone(),
				Medium:        medium,
				Probabilities: req.Probabilities.Clone(),
			})
			if err != nil {
				return fmt.Errorf("medium %s: %w", medium.Name, err)
			}
			out.Results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	for _, res := range out.Results {
		s.opts.logger.Info("medium gap-filled", "medium", res.Medium, "added", res.Selection.Added.Len(), "growth", res.Selection.Grew)
		for _, id := range res.Selection.Added.Sorted() {
			out.Added.Add(id)
			out.MediaSources[id] = append(out.MediaSources[id], res.Medium)
		}
	}
	if s.opts.arts != nil {
		if err := s.opts.arts.PutReactionSet(ctx, ArtifactKey(out.BatchID, "", "added_reactions"), out.Added); err != nil {
			return out, fmt.Errorf("persist batch added reactions: %w", err)
		}
		if err := s.opts.arts.PutMediaSources(ctx, ArtifactKey(out.BatchID, "", "media_sources"), out.MediaSources); err != nil {
			return out, fmt.Errorf("persist media sources: %w", err)
		}
	}
	return out, nil
}

// SuggestReport aggregates suggestions across media.
type SuggestReport struct {
	BatchID   string
	PerMedium map[string]domain.ReactionSet
	Reactions domain.ReactionSet
	Roles     domain.RoleSet
	// Sources lists the provenance label recorded on each medium, in ascending medium order.
	Sources map[string][]string
}

// SuggestMedia runs only the suggestion pipeline on every medium.
func (s *Service) SuggestMedia(ctx context.Context, draft domain.ReactionSet, draftRoles domain.RoleSet, media []domain.Medium) (SuggestReport, error) {
	out := SuggestReport{
		BatchID:   s.newRunID(),
		PerMedium: make(map[string]domain.ReactionSet),
		Reactions: domain.NewReactionSet(),
		Roles:     domain.NewRoleSet(),
		Sources:   make(map[string][]string),
	}
	for _, medium := range sortedMedia(media) {
		rec := domain.RunRecord{
			ID:        out.BatchID + "-" + sanitizeSegment(medium.Name),
			Kind:      domain.RunSuggest,
			Medium:    medium.Name,
			Organism:  s.ref.Organism,
			StartedAt: s.opts.clock.Now(),
		}
		// The pipeline never mutates the table, so the shared reference is safe here.
		pipeline := NewDefaultPipeline(s.oracle, s.roles, s.cfg.Evidence, s.rawOpts...)
		sug, err := pipeline.Suggest(ctx, SuggestRequest{Reference: s.ref, Draft: draft, DraftRoles: draftRoles, Medium: medium})
		rec.FinishedAt = s.opts.clock.Now()
		fillRecord(&rec, MediumResult{Suggestion: sug}, err)
		if err != nil {
			return out, errors.Join(fmt.Errorf("medium %s: %w", medium.Name, err), s.saveRun(ctx, rec))
		}
		if err := s.saveRun(ctx, rec); err != nil {
			return out, err
		}
		out.PerMedium[medium.Name] = sug.MissingReactions
		out.Reactions.Update(sug.MissingReactions)
		out.Roles.Update(sug.MissingRoles)
		for _, id := range sug.MissingReactions.Sorted() {
			out.Sources[id] = append(out.Sources[id], sug.Provenance[id])
		}
	}
	if s.opts.arts != nil {
		if err := s.opts.arts.PutReactionSet(ctx, ArtifactKey(out.BatchID, "", "suggested_reactions"), out.Reactions); err != nil {
			return out, fmt.Errorf("persist suggested reactions: %w", err)
		}
		if err := s.opts.arts.PutReactionSet(ctx, ArtifactKey(out.BatchID, "", "suggested_roles"), out.Roles); err != nil {
			return out, fmt.Errorf("persist suggested roles: %w", err)
		}
		if err := s.opts.arts.PutMediaSources(ctx, ArtifactKey(out.BatchID, "", "suggested_sources"), out.Sources); err != nil {
			return out, fmt.Errorf("persist suggestion sources: %w", err)
		}
	}
	return out, nil
}

func sortedMedia(media []domain.Medium) []domain.Medium {
	out := append([]domain.Medium(nil), media...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
