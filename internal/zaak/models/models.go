// Package models holds the case (zaak) record, its relations, and the
// follow-up instructions and events produced by lifecycle transitions.
package models

import (
	"time"

	id "zac/pkg/domain"
)

// Status is the lifecycle status of a case.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusSuspended  Status = "SUSPENDED"
	StatusClosed     Status = "CLOSED"
	StatusTerminated Status = "TERMINATED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusSuspended, StatusClosed, StatusTerminated:
		return true
	}
	return false
}

// IsTerminal reports whether no ordinary transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusTerminated
}

// Case is a zaak as tracked by this service.
//
// SuspensionStart is set exactly while the case is SUSPENDED, and
// ResultTypeRef only once it is CLOSED or TERMINATED.
type Case struct {
	ID                      id.CaseID            `json:"id"`
	Identification          string               `json:"identification"`
	CaseTypeVersionID       id.CaseTypeVersionID `json:"case_type_version_id"`
	Status                  Status               `json:"status"`
	StartDate               time.Time            `json:"start_date"`
	PlannedCompletionDate   *time.Time           `json:"planned_completion_date,omitempty"`
	UltimateCompletionDate  time.Time            `json:"ultimate_completion_date"`
	SuspensionStart         *time.Time           `json:"suspension_start,omitempty"`
	SuspensionExpectedDays  int                  `json:"suspension_expected_days"`
	CumulativeSuspendedDays int                  `json:"cumulative_suspended_days"`
	AssignedGroup           string               `json:"assigned_group,omitempty"`
	AssignedUser            string               `json:"assigned_user,omitempty"`
	ParentID                *id.CaseID           `json:"parent_id,omitempty"`
	ResultTypeRef           *id.ResultTypeRef    `json:"result_type_ref,omitempty"`
	EndDate                 *time.Time           `json:"end_date,omitempty"`
	Reopened                bool                 `json:"reopened"`
	Version                 int64                `json:"version"`
	UpdatedAt               time.Time            `json:"updated_at"`
}

// Clone returns a deep copy.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	out := *c
	out.PlannedCompletionDate = cloneTime(c.PlannedCompletionDate)
	out.SuspensionStart = cloneTime(c.SuspensionStart)
	out.EndDate = cloneTime(c.EndDate)
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	if c.ResultTypeRef != nil {
		r := *c.ResultTypeRef
		out.ResultTypeRef = &r
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// RelationKind classifies an edge between two cases.
type RelationKind string

const (
	RelationFollowup     RelationKind = "FOLLOWUP"
	RelationSubject      RelationKind = "SUBJECT"
	RelationContribution RelationKind = "CONTRIBUTION"
	// RelationParentChild is stored as a ParentLink, never as a CaseRelation.
	RelationParentChild RelationKind = "PARENT_CHILD"
)

func (k RelationKind) IsValid() bool {
	switch k {
	case RelationFollowup, RelationSubject, RelationContribution, RelationParentChild:
		return true
	}
	return false
}

// CaseRelation is a directed, typed edge from Source to Target.
type CaseRelation struct {
	SourceID id.CaseID    `json:"source_id"`
	TargetID id.CaseID    `json:"target_id"`
	Kind     RelationKind `json:"kind"`
}

// ParentLink attaches a child case (deelzaak) to its parent (hoofdzaak).
type ParentLink struct {
	ChildID  id.CaseID `json:"child_id"`
	ParentID id.CaseID `json:"parent_id"`
}

// Task is an open human task on a case, as reported by the workflow engine.
type Task struct {
	ID      string     `json:"id"`
	DueDate *time.Time `json:"due_date,omitempty"`
}
