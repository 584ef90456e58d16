package gapfill

import (
	"fmt"

	"gapfill/pkg/domain"
)

// Normalized is the forward-only rewrite of a candidate set.
type Normalized struct {
	Candidates    domain.ReactionSet
	Probabilities domain.ReactionProbabilities
	Reversed      []string
	Split         []string
}

// NormalizeDirections rewrites candidates so every member runs strictly
// forward. Reverse-only reactions are reversed in place in table; bidirectional
// reactions are replaced by new <id>_f and <id>_r reactions inserted into
// table, which inherit the parent's probability. Forward transport reactions
// and every transport reaction touched are pinned to [0, MaxFlux].
//
// Protected reactions (the original model) and candidates absent from table
// are left untouched. probs is not modified.
func NormalizeDirections(table *domain.ReactionTable, candidates domain.ReactionSet, probs domain.ReactionProbabilities) (Normalized, error) {
	out := Normalized{
		Candidates:    candidates.Clone(),
		Probabilities: probs.Clone(),
	}
	if out.Probabilities == nil {
		out.Probabilities = make(domain.ReactionProbabilities)
	}

	for _, id := range candidates.Sorted() {
		if table.IsProtected(id) {
			continue
		}
		r, ok := table.Get(id)
		if !ok {
			continue
		}
		switch r.Direction {
		case domain.DirectionForward:
			if err := settleForward(table, r); err != nil {
				return Normalized{}, err
			}
		case domain.DirectionReverse:
			reversed, err := table.ReverseInPlace(id)
			if err != nil {
				return Normalized{}, err
			}
			if err := settleForward(table, reversed); err != nil {
				return Normalized{}, err
			}
			out.Reversed = append(out.Reversed, id)
		case domain.DirectionBidirectional:
			fwd, rev := r.Split()
			if r.IsTransport {
				fwd.PinTransportBounds()
				rev.PinTransportBounds()
			}
			for _, derived := range []domain.Reaction{fwd, rev} {
				if err := table.InsertDerived(derived); err != nil {
					return Normalized{}, err
				}
				out.Candidates.Add(derived.ID)
				if p, ok := probs[id]; ok {
					out.Probabilities[derived.ID] = p
				}
			}
			out.Candidates.Remove(id)
			out.Split = append(out.Split, id)
		default:
			return Normalized{}, fmt.Errorf("normalize %s: unknown direction %q", id, r.Direction)
		}
	}
	return out, nil
}

// settleForward pins transport bounds and clamps any negative lower bound left
// by inconsistent source data.
func settleForward(table *domain.ReactionTable, r domain.Reaction) error {
	if r.IsTransport {
		return table.PinTransportBounds(r.ID)
	}
	if r.LowerBound < 0 {
		return table.ClampForward(r.ID)
	}
	return nil
}
