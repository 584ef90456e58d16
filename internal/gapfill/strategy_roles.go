package gapfill

import (
	"context"

	"gapfill/pkg/domain"
)

// RolesStrategy proposes the reactions of roles observed in related genomes.
type RolesStrategy struct {
	name   string
	source string
	roles  domain.RoleSet
	mapper domain.RoleMapper
}

// NewCloseGenomesStrategy proposes reactions from roles of closely related genomes.
func NewCloseGenomesStrategy(roles domain.RoleSet, mapper domain.RoleMapper) RolesStrategy {
	return RolesStrategy{name: "close_genomes", source: SourceClose, roles: roles, mapper: mapper}
}

// NewGenusStrategy proposes reactions from roles found across the genus.
func NewGenusStrategy(roles domain.RoleSet, mapper domain.RoleMapper) RolesStrategy {
	return RolesStrategy{name: "genus", source: SourceGenus, roles: roles, mapper: mapper}
}

func (s RolesStrategy) Name() string   { return s.name }
func (s RolesStrategy) Source() string { return s.source }

func (s RolesStrategy) Suggest(_ context.Context, in StageInput) (domain.ReactionSet, error) {
	out := domain.NewReactionSet()
	if s.mapper == nil || len(s.roles) == 0 {
		return out, nil
	}
	for _, rxns := range s.mapper.RolesToReactions(s.roles) {
		for id := range rxns {
			if in.Reference.Reactions.Has(id) {
				out.Add(id)
			}
		}
	}
	return out, nil
}
