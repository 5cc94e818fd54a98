package handler

import (
	"strings"
	"time"

	"zac/internal/zaak/models"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/httputil"
)

type openCaseRequest struct {
	Identification         string     `json:"identification" validate:"required,max=40"`
	CaseTypeVersionID      string     `json:"case_type_version_id" validate:"required,uuid"`
	StartDate              time.Time  `json:"start_date" validate:"required"`
	PlannedCompletionDate  *time.Time `json:"planned_completion_date,omitempty"`
	UltimateCompletionDate time.Time  `json:"ultimate_completion_date" validate:"required"`
	AssignedGroup          string     `json:"assigned_group,omitempty" validate:"max=100"`
	AssignedUser           string     `json:"assigned_user,omitempty" validate:"max=100"`
}

func (r *openCaseRequest) Validate() error {
	r.Identification = strings.TrimSpace(r.Identification)
	return httputil.ValidateStruct(r)
}

type suspendRequest struct {
	Reason       string `json:"reason" validate:"max=1000"`
	ExpectedDays int    `json:"expected_days" validate:"min=0,max=3650"`
}

func (r *suspendRequest) Validate() error { return httputil.ValidateStruct(r) }

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func (r *reasonRequest) Validate() error { return httputil.ValidateStruct(r) }

type extendRequest struct {
	ExtraDays      int    `json:"extra_days" validate:"min=1,max=3650"`
	CascadeToTasks bool   `json:"cascade_to_tasks"`
	Reason         string `json:"reason" validate:"max=1000"`
}

func (r *extendRequest) Validate() error { return httputil.ValidateStruct(r) }

type closeRequest struct {
	ResultTypeRef string `json:"result_type_ref" validate:"required,uuid"`
	Reason        string `json:"reason" validate:"max=1000"`
}

func (r *closeRequest) Validate() error { return httputil.ValidateStruct(r) }

type terminateRequest struct {
	// EndingReasonID stays a string; the lifecycle decides whether it is an
	// identifier at all.
	EndingReasonID string `json:"ending_reason_id" validate:"required"`
	Reason         string `json:"reason" validate:"max=1000"`
}

func (r *terminateRequest) Validate() error { return httputil.ValidateStruct(r) }

type initiatorRequest struct {
	Type            string `json:"type" validate:"required,oneof=bsn vestiging rsin"`
	Number          string `json:"number" validate:"required"`
	VestigingNumber string `json:"vestiging_number,omitempty"`
}

func (r *initiatorRequest) Validate() error {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}
	if r.Type == "vestiging" && r.VestigingNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "vestiging_number is required for type vestiging")
	}
	return nil
}

type linkRequest struct {
	TargetID      string              `json:"target_id" validate:"required,uuid"`
	Kind          models.RelationKind `json:"kind" validate:"required,oneof=FOLLOWUP SUBJECT CONTRIBUTION PARENT_CHILD"`
	ReverseKind   models.RelationKind `json:"reverse_kind,omitempty" validate:"omitempty,oneof=FOLLOWUP SUBJECT CONTRIBUTION"`
	ChildIsTarget bool                `json:"child_is_target"`
}

func (r *linkRequest) Validate() error { return httputil.ValidateStruct(r) }

// outcomeResponse reports the new case state and the follow-up work issued.
type outcomeResponse struct {
	Case         *models.Case      `json:"case,omitempty"`
	Instructions []instructionView `json:"instructions"`
	Events       int               `json:"events"`
}

type instructionView struct {
	Kind   models.InstructionKind `json:"kind"`
	CaseID string                 `json:"case_id"`
	TaskID string                 `json:"task_id,omitempty"`
}

func toOutcomeResponse(out *models.Outcome) outcomeResponse {
	resp := outcomeResponse{
		Case:         out.Case,
		Instructions: make([]instructionView, 0, len(out.Instructions)),
		Events:       len(out.Events),
	}
	for _, in := range out.Instructions {
		resp.Instructions = append(resp.Instructions, instructionView{
			Kind:   in.Kind,
			CaseID: in.CaseID.String(),
			TaskID: in.TaskID,
		})
	}
	return resp
}

type relationsResponse struct {
	Relations []models.CaseRelation `json:"relations"`
}

type childrenResponse struct {
	Children []string `json:"children"`
}
