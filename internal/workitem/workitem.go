// Package workitem provides the domain types for Azure DevOps work items.
package workitem

import (
	"fmt"
	"time"
)

// Field reference names used by the Azure DevOps REST API.
// These are the fields workdash requests and caches; everything else
// in the remote field bag is ignored.
const (
	FieldID         = "System.Id"
	FieldType       = "System.WorkItemType"
	FieldTitle      = "System.Title"
	FieldAssignedTo = "System.AssignedTo"
	FieldState      = "System.State"
	FieldTags       = "System.Tags"
	FieldStartDate  = "Microsoft.VSTS.Scheduling.StartDate"
	FieldTargetDate = "Microsoft.VSTS.Scheduling.TargetDate"
)

// WorkItem is a single cached work-item record.
//
// ID is the sole uniqueness constraint. Every other field is optional:
// string fields use "" for absent values and date fields use nil.
// Records carry no relationships to other records.
type WorkItem struct {
	ID         int    `json:"id"`
	Type       string `json:"type,omitempty"`
	Title      string `json:"title,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
	State      string `json:"state,omitempty"`
	Tags       string `json:"tags,omitempty"`

	StartDate  *time.Time `json:"start_date,omitempty"`
	TargetDate *time.Time `json:"target_date,omitempty"`
}

// Validate checks that the WorkItem can be stored.
func (w *WorkItem) Validate() error {
	if w.ID <= 0 {
		return fmt.Errorf("id must be a positive integer (got %d)", w.ID)
	}
	return nil
}

// FromFields builds a WorkItem from the remote field bag returned by the
// detail-fetch endpoint.
//
// System.AssignedTo arrives as an identity object; only its displayName is
// kept. Scheduling dates arrive as RFC 3339 strings (often with fractional
// seconds); values that fail to parse are dropped rather than failing the
// whole record.
func FromFields(id int, fields map[string]any) *WorkItem {
	w := &WorkItem{
		ID:    id,
		Type:  stringField(fields, FieldType),
		Title: stringField(fields, FieldTitle),
		State: stringField(fields, FieldState),
		Tags:  stringField(fields, FieldTags),
	}

	if identity, ok := fields[FieldAssignedTo].(map[string]any); ok {
		if name, ok := identity["displayName"].(string); ok {
			w.AssignedTo = name
		}
	}

	w.StartDate = timeField(fields, FieldStartDate)
	w.TargetDate = timeField(fields, FieldTargetDate)

	return w
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

func timeField(fields map[string]any, name string) *time.Time {
	s, ok := fields[name].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
