package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gapfill/internal/evidence"
	"gapfill/internal/gapfill"
	"gapfill/pkg/domain"
)

// mediaFlags select the growth media of a run.
type mediaFlags struct {
	dir        string
	conditions string
	files      []string
}

func (m *mediaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.dir, "media-dir", "", "directory holding <condition>.txt media files")
	cmd.Flags().StringVar(&m.conditions, "conditions", "", "file listing media conditions (one per line)")
	cmd.Flags().StringSliceVarP(&m.files, "medium", "m", nil, "medium file (repeatable)")
}

func (m *mediaFlags) load() ([]domain.Medium, error) {
	var media []domain.Medium
	for _, path := range m.files {
		medium, err := evidence.LoadMedium(path)
		if err != nil {
			return nil, err
		}
		media = append(media, medium)
	}
	if m.conditions != "" {
		conds, err := evidence.LoadConditions(m.conditions)
		if err != nil {
			return nil, err
		}
		loaded, err := evidence.LoadMediaDir(m.dir, conds)
		if err != nil {
			return nil, err
		}
		media = append(media, loaded...)
	}
	if len(media) == 0 {
		return nil, errors.New("no media given: use --medium or --conditions with --media-dir")
	}
	return media, nil
}

// draftFlags select the draft model and comparative evidence.
type draftFlags struct {
	reactions  string
	roles      string
	closeRoles string
	genusRoles string
}

func (d *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&d.reactions, "draft", "d", "", "draft reaction list (required)")
	cmd.Flags().StringVar(&d.roles, "draft-roles", "", "roles of the draft model")
	cmd.Flags().StringVar(&d.closeRoles, "close-roles", "", "roles found in closely related genomes")
	cmd.Flags().StringVar(&d.genusRoles, "genus-roles", "", "roles found in genomes of the same genus")
	_ = cmd.MarkFlagRequired("draft")
}

func optionalRoles(path string) (domain.RoleSet, error) {
	if path == "" {
		return domain.NewRoleSet(), nil
	}
	return evidence.LoadRoles(path)
}

func (d *draftFlags) load() (domain.ReactionSet, domain.RoleSet, gapfill.Evidence, error) {
	var ev gapfill.Evidence
	draft, err := evidence.LoadReactions(d.reactions)
	if err != nil {
		return nil, nil, ev, err
	}
	roles, err := optionalRoles(d.roles)
	if err != nil {
		return nil, nil, ev, err
	}
	if ev.CloseRoles, err = optionalRoles(d.closeRoles); err != nil {
		return nil, nil, ev, err
	}
	if ev.GenusRoles, err = optionalRoles(d.genusRoles); err != nil {
		return nil, nil, ev, err
	}
	return draft, roles, ev, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeIDsTo(path string, ids domain.ReactionSet) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := evidence.WriteIDs(f, ids); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func newDraftCmd(flags *rootFlags) *cobra.Command {
	var functions, rolesOut, reactionsOut string
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Build a draft reaction set from assigned functions",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := setup(cmd.Context(), flags, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			assigned, err := evidence.LoadAssignedFunctions(functions)
			if err != nil {
				return err
			}
			draft := gapfill.BuildDraft(assigned, a.catalog, a.ref.Reactions, a.logger)
			if err := writeIDsTo(rolesOut, draft.Roles); err != nil {
				return err
			}
			if err := writeIDsTo(reactionsOut, draft.Reactions); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"roles":     draft.Roles.Len(),
				"reactions": draft.Reactions.Sorted(),
				"skipped":   draft.Skipped,
			})
		},
	}
	cmd.Flags().StringVarP(&functions, "functions", "f", "", "assigned functions file (peg<TAB>function)")
	cmd.Flags().StringVar(&rolesOut, "roles-out", "", "write draft roles to this file")
	cmd.Flags().StringVar(&reactionsOut, "reactions-out", "", "write draft reactions to this file")
	_ = cmd.MarkFlagRequired("functions")
	return cmd
}

func newSuggestCmd(flags *rootFlags) *cobra.Command {
	var (
		df draftFlags
		mf mediaFlags
	)
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest reactions that may be missing from a draft model on each medium",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := setup(cmd.Context(), flags, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			draft, roles, ev, err := df.load()
			if err != nil {
				return err
			}
			media, err := mf.load()
			if err != nil {
				return err
			}
			report, err := a.service(ev).SuggestMedia(cmd.Context(), draft, roles, media)
			if err != nil {
				return err
			}
			perMedium := make(map[string][]string, len(report.PerMedium))
			for name, ids := range report.PerMedium {
				perMedium[name] = ids.Sorted()
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"batch_id":   report.BatchID,
				"per_medium": perMedium,
				"reactions":  report.Reactions.Sorted(),
				"roles":      report.Roles.Sorted(),
				"sources":    report.Sources,
			})
		},
	}
	df.register(cmd)
	mf.register(cmd)
	return cmd
}

func newFillCmd(flags *rootFlags) *cobra.Command {
	var (
		df            draftFlags
		mf            mediaFlags
		probabilities string
		addedOut      string
	)
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Gap-fill a draft model on every medium using reaction likelihoods",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := setup(cmd.Context(), flags, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			draft, roles, ev, err := df.load()
			if err != nil {
				return err
			}
			media, err := mf.load()
			if err != nil {
				return err
			}
			probs, err := evidence.LoadProbabilities(probabilities)
			if err != nil {
				return err
			}
			res, err := a.service(ev).GapfillMedia(cmd.Context(), gapfill.MultiMediaRequest{
				Draft:         draft,
				DraftRoles:    roles,
				Media:         media,
				Probabilities: probs,
			})
			if err != nil {
				return err
			}
			if err := writeIDsTo(addedOut, res.Added); err != nil {
				return err
			}
			growth := make(map[string]bool, len(res.Results))
			for _, r := range res.Results {
				growth[r.Medium] = r.Selection.Grew
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"batch_id":         res.BatchID,
				"added":            res.Added.Sorted(),
				"media_sources":    res.MediaSources,
				"growth":           growth,
				"on_half_of_media": res.AddedOnFraction(0.5),
			})
		},
	}
	df.register(cmd)
	mf.register(cmd)
	cmd.Flags().StringVarP(&probabilities, "probabilities", "p", "", "reaction probability file (reaction<TAB>probability)")
	cmd.Flags().StringVar(&addedOut, "added-out", "", "write the union of added reactions to this file")
	_ = cmd.MarkFlagRequired("probabilities")
	return cmd
}

func newPredictCmd(flags *rootFlags) *cobra.Command {
	var (
		mf         mediaFlags
		model      string
		phenotypes string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict growth of a model on each medium and compare with observed phenotypes",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := setup(cmd.Context(), flags, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			reactions, err := evidence.LoadReactions(model)
			if err != nil {
				return err
			}
			observed, err := evidence.LoadPhenotypes(phenotypes)
			if err != nil {
				return err
			}
			media, err := mf.load()
			if err != nil {
				return err
			}
			report, err := a.service(gapfill.Evidence{}).PredictGrowth(cmd.Context(), gapfill.PredictRequest{
				Reactions:  reactions,
				Media:      media,
				Phenotypes: observed,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	mf.register(cmd)
	cmd.Flags().StringVar(&model, "model", "", "model reaction list (required)")
	cmd.Flags().StringVar(&phenotypes, "phenotypes", "", "observed growth phenotypes (condition<TAB>0|1)")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("phenotypes")
	return cmd
}

func newRunsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "runs [id]",
		Short: "List recorded runs, or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := setup(cmd.Context(), flags, cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close()) }()

			if len(args) == 1 {
				rec, err := a.runs.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			recs, err := a.runs.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			for _, rec := range recs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\tgrew=%t\n", rec.ID, rec.Kind, rec.Medium, rec.State, rec.Grew)
			}
			return nil
		},
	}
}
