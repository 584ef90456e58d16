// Package artifact persists intermediate gap-filling results (reaction sets,
// provenance maps, fluxes, media sources) as JSON blobs.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gapfill/internal/blob"
	"gapfill/pkg/domain"
)

const contentType = "application/json"

// Kind labels the shape stored in a blob; it is recorded as blob metadata.
type Kind string

const (
	KindReactionSet  Kind = "reaction_set"
	KindProvenance   Kind = "provenance"
	KindFluxes       Kind = "fluxes"
	KindMediaSources Kind = "media_sources"
)

// Store encodes artifacts onto a blob store. Keys are create-only.
type Store struct {
	blobs blob.Store
}

// New wraps blobs.
func New(blobs blob.Store) *Store {
	return &Store{blobs: blobs}
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blob.Store { return s.blobs }

func (s *Store) put(ctx context.Context, key string, kind Kind, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"kind": string(kind)},
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	_, rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// PutReactionSet stores set as a sorted JSON array.
func (s *Store) PutReactionSet(ctx context.Context, key string, set domain.ReactionSet) error {
	ids := set.Sorted()
	if ids == nil {
		ids = []string{}
	}
	return s.put(ctx, key, KindReactionSet, ids)
}

// ReactionSet loads a set written by PutReactionSet.
func (s *Store) ReactionSet(ctx context.Context, key string) (domain.ReactionSet, error) {
	var ids []string
	if err := s.get(ctx, key, &ids); err != nil {
		return nil, err
	}
	return domain.NewReactionSet(ids...), nil
}

// PutProvenance stores a reaction -> source label map.
func (s *Store) PutProvenance(ctx context.Context, key string, prov domain.ProvenanceMap) error {
	if prov == nil {
		prov = domain.ProvenanceMap{}
	}
	return s.put(ctx, key, KindProvenance, prov)
}

// Provenance loads a map written by PutProvenance.
func (s *Store) Provenance(ctx context.Context, key string) (domain.ProvenanceMap, error) {
	prov := domain.ProvenanceMap{}
	if err := s.get(ctx, key, &prov); err != nil {
		return nil, err
	}
	return prov, nil
}

// PutFluxes stores a flux vector.
func (s *Store) PutFluxes(ctx context.Context, key string, fluxes domain.FluxResult) error {
	if fluxes == nil {
		fluxes = domain.FluxResult{}
	}
	return s.put(ctx, key, KindFluxes, fluxes)
}

// Fluxes loads a flux vector written by PutFluxes.
func (s *Store) Fluxes(ctx context.Context, key string) (domain.FluxResult, error) {
	fluxes := domain.FluxResult{}
	if err := s.get(ctx, key, &fluxes); err != nil {
		return nil, err
	}
	return fluxes, nil
}

// PutMediaSources stores reaction -> media lists.
func (s *Store) PutMediaSources(ctx context.Context, key string, sources map[string][]string) error {
	if sources == nil {
		sources = map[string][]string{}
	}
	return s.put(ctx, key, KindMediaSources, sources)
}

// MediaSources loads lists written by PutMediaSources.
func (s *Store) MediaSources(ctx context.Context, key string) (map[string][]string, error) {
	sources := map[string][]string{}
	if err := s.get(ctx, key, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// Keys lists the artifact keys under a run, in key order.
func (s *Store) Keys(ctx context.Context, runID string) ([]string, error) {
	prefix := "runs/"
	if runID != "" {
		prefix += strings.TrimSuffix(runID, "/") + "/"
	}
	infos, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Key
	}
	return out, nil
}
