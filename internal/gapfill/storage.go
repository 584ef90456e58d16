package gapfill

import (
	"context"
	"fmt"
	"path"
	"strings"

	"gapfill/internal/infra/persistence/memory"
	"gapfill/internal/infra/persistence/postgres"
	"gapfill/internal/infra/persistence/sqlite"
	"gapfill/pkg/domain"
)

// StorageDriver identifies a run ledger backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// RunStore records gap-fill runs.
type RunStore interface {
	SaveRun(ctx context.Context, rec domain.RunRecord) error
}

// ArtifactSink persists intermediate results between runs.
type ArtifactSink interface {
	PutReactionSet(ctx context.Context, key string, set domain.ReactionSet) error
	PutProvenance(ctx context.Context, key string, prov domain.ProvenanceMap) error
	PutFluxes(ctx context.Context, key string, fluxes domain.FluxResult) error
	PutMediaSources(ctx context.Context, key string, sources map[string][]string) error
}

// LedgerStore is a run store that can also read its records back.
type LedgerStore interface {
	RunStore
	GetRun(ctx context.Context, id string) (domain.RunRecord, error)
	ListRuns(ctx context.Context) ([]domain.RunRecord, error)
}

// OpenRunStore selects a ledger backend. An empty driver selects sqlite.
func OpenRunStore(ctx context.Context, driver StorageDriver, sqlitePath, postgresDSN string) (LedgerStore, error) {
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(sqlitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, postgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// ArtifactKey builds the blob key of an artifact produced by a run.
func ArtifactKey(runID, medium, name string) string {
	if medium == "" {
		return path.Join("runs", runID, name+".json")
	}
	return path.Join("runs", runID, sanitizeSegment(medium), name+".json")
}

func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "..", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "_"
	}
	return s
}
