package gapfill

import (
	"gapfill/pkg/domain"
)

// Draft is an initial model built from genome annotation.
type Draft struct {
	Roles     domain.RoleSet
	Reactions domain.ReactionSet
	// Skipped lists mapped reactions absent from the reference.
	Skipped []string
}

// BuildDraft maps the roles of the assigned functions (peg -> roles) to
// reactions and keeps those present in the reference table.
func BuildDraft(assigned map[string][]string, mapper domain.RoleMapper, table *domain.ReactionTable, logger Logger) Draft {
	if logger == nil {
		logger = noopLogger{}
	}
	roles := domain.NewRoleSet()
	for _, rs := range assigned {
		for _, role := range rs {
			if role != "" {
				roles.Add(role)
			}
		}
	}
	logger.Info("roles in genome", "count", roles.Len())

	mapped := domain.NewReactionSet()
	if mapper != nil {
		for _, ids := range mapper.RolesToReactions(roles) {
			mapped.Update(ids)
		}
	}
	present, skipped := table.Filter(mapped)
	for _, id := range skipped {
		logger.Warn("reaction not in reference, skipped", "reaction", id)
	}
	logger.Info("draft reactions", "count", present.Len())
	return Draft{Roles: roles, Reactions: present, Skipped: skipped}
}
