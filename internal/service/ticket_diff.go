package service

import (
	"slices"
	"sort"
	"time"

	"github.com/spec-kit/eservice/internal/domain"
)

// diffTickets reports the mutable fields that differ between before and after.
// updated_at is left out since every update moves it.
func diffTickets(before, after *domain.Ticket) map[string]domain.FieldChange {
	changes := map[string]domain.FieldChange{}
	if before.Status != after.Status {
		changes["status"] = domain.FieldChange{Old: string(before.Status), New: string(after.Status)}
	}
	if before.Priority != after.Priority {
		changes["priority"] = domain.FieldChange{Old: string(before.Priority), New: string(after.Priority)}
	}
	if !equalStringPtr(before.AssignedAgentID, after.AssignedAgentID) {
		changes["assigned_agent_id"] = domain.FieldChange{Old: derefString(before.AssignedAgentID), New: derefString(after.AssignedAgentID)}
	}
	if !equalStringPtr(before.AssignedDepartmentID, after.AssignedDepartmentID) {
		changes["assigned_department_id"] = domain.FieldChange{Old: derefString(before.AssignedDepartmentID), New: derefString(after.AssignedDepartmentID)}
	}
	if before.Description != after.Description {
		changes["description"] = domain.FieldChange{Old: before.Description, New: after.Description}
	}
	if !slices.Equal(before.Tags, after.Tags) {
		changes["tags"] = domain.FieldChange{Old: before.Tags, New: after.Tags}
	}
	if before.ResolvedAt == nil && after.ResolvedAt != nil {
		changes["resolved_at"] = domain.FieldChange{Old: nil, New: after.ResolvedAt.Format(time.RFC3339Nano)}
	}
	return changes
}

func changedFields(changes map[string]domain.FieldChange) []string {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
