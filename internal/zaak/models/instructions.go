package models

import (
	"time"

	id "zac/pkg/domain"
)

// InstructionKind names the follow-up work a collaborator must perform.
type InstructionKind string

const (
	InstructionPersistCase      InstructionKind = "persist_case"
	InstructionShiftTaskDueDate InstructionKind = "shift_task_due_date"
	InstructionReindexCase      InstructionKind = "reindex_case"
	InstructionNotifyParent     InstructionKind = "notify_parent"
	InstructionSetInitiator     InstructionKind = "set_initiator"
)

// Instruction is one independently retryable follow-up action.
type Instruction struct {
	Kind      InstructionKind `json:"kind"`
	CaseID    id.CaseID       `json:"case_id"`
	TaskID    string          `json:"task_id,omitempty"`
	Days      int             `json:"days,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Initiator *InitiatorRole  `json:"initiator,omitempty"`
}

// EventType names a change notification published for a case.
type EventType string

const (
	EventCaseCreated           EventType = "case_created"
	EventCaseUpdated           EventType = "case_updated"
	EventTaskUpdated           EventType = "task_updated"
	EventTasksBatchChanged     EventType = "tasks_batch_changed"
	EventCaseLinked            EventType = "case_linked"
	EventCaseUnlinked          EventType = "case_unlinked"
	EventConfigurationMigrated EventType = "configuration_migrated"
)

// Event is a change notification for a case.
type Event struct {
	Type       EventType `json:"type"`
	CaseID     id.CaseID `json:"case_id"`
	TaskID     string    `json:"task_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Outcome is the result of a transition: the new case state and the work
// the caller must carry out.
type Outcome struct {
	Case         *Case         `json:"case,omitempty"`
	Instructions []Instruction `json:"instructions"`
	Events       []Event       `json:"events"`
}

// CountInstructions counts the instructions of the given kind.
func (o *Outcome) CountInstructions(kind InstructionKind) int {
	n := 0
	for _, in := range o.Instructions {
		if in.Kind == kind {
			n++
		}
	}
	return n
}

// CountEvents counts the events of the given type.
func (o *Outcome) CountEvents(t EventType) int {
	n := 0
	for _, e := range o.Events {
		if e.Type == t {
			n++
		}
	}
	return n
}
