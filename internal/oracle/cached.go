package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"gapfill/pkg/domain"
)

// DefaultCacheSize bounds the number of memoised probes.
const DefaultCacheSize = 4096

// Cached memoises plain feasibility probes. Likelihood requests always reach
// the wrapped oracle. Only optimal results are stored.
type Cached struct {
	next  domain.Oracle
	cache *lru.Cache[string, domain.OracleResult]
}

var _ domain.Oracle = (*Cached)(nil)

// NewCached wraps next with an LRU of size entries (DefaultCacheSize when size <= 0).
func NewCached(next domain.Oracle, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, domain.OracleResult](size)
	if err != nil {
		return nil, fmt.Errorf("oracle cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

// Len returns the number of cached results.
func (c *Cached) Len() int { return c.cache.Len() }

// Run implements domain.Oracle.
func (c *Cached) Run(ctx context.Context, req domain.OracleRequest) (domain.OracleResult, error) {
	if req.Likelihood != nil || req.Reference == nil {
		return c.next.Run(ctx, req)
	}
	key := probeKey(req)
	if res, ok := c.cache.Get(key); ok {
		return cloneResult(res), nil
	}
	res, err := c.next.Run(ctx, req)
	if err != nil {
		return res, err
	}
	if res.Status == domain.StatusOptimal {
		c.cache.Add(key, cloneResult(res))
	}
	return res, nil
}

// probeKey hashes the medium, the biomass reaction and every active reaction
// with its current bounds, so mutated tables never share entries.
func probeKey(req domain.OracleRequest) string {
	h := sha256.New()
	writeField(h, "medium")
	for _, cpd := range req.Medium.Compounds.Sorted() {
		writeField(h, cpd)
	}
	writeField(h, "biomass")
	writeReaction(h, req.Biomass)
	writeField(h, "active")
	for _, id := range req.Active.Sorted() {
		r, ok := req.Reference.Lookup(id)
		if !ok {
			continue
		}
		writeReaction(h, *r)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeReaction(h hash.Hash, r domain.Reaction) {
	writeField(h, r.ID)
	writeField(h, string(r.Direction))
	writeField(h, strconv.FormatFloat(r.LowerBound, 'g', -1, 64))
	writeField(h, strconv.FormatFloat(r.UpperBound, 'g', -1, 64))
	cpds := make([]string, 0, len(r.Stoichiometry))
	for cpd := range r.Stoichiometry {
		cpds = append(cpds, cpd)
	}
	sort.Strings(cpds)
	for _, cpd := range cpds {
		writeField(h, cpd)
		writeField(h, strconv.FormatFloat(r.Stoichiometry[cpd], 'g', -1, 64))
	}
}

func writeField(h hash.Hash, s string) {
	_, _ = h.Write([]byte(s))
	_, _ = h.Write([]byte{0})
}

func cloneResult(res domain.OracleResult) domain.OracleResult {
	out := res
	out.Fluxes = make(domain.FluxResult, len(res.Fluxes))
	for id, v := range res.Fluxes {
		out.Fluxes[id] = v
	}
	return out
}
