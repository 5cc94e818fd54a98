// Package models defines the per case-type-version configuration record and the
// catalog notification that drives its migration.
package models

import (
	"maps"
	"slices"
	"time"

	catalog "zac/internal/catalog/models"
	id "zac/pkg/domain"
)

// CompletionReason maps an ending reason onto a result type. The result type's
// description is kept alongside the ref so a later version can be remapped by
// description without asking the catalog about a superseded version.
type CompletionReason struct {
	ResultTypeRef         id.ResultTypeRef `json:"result_type_ref"`
	ResultTypeDescription string           `json:"result_type_description"`
}

// SenderPolicy lists the addresses outgoing mail may be sent from.
type SenderPolicy struct {
	Allowed []string `json:"allowed"`
	Default string   `json:"default"`
}

// LinkingPolicy says which registries an initiator may be linked from.
type LinkingPolicy struct {
	MayLinkCitizenRegistry  bool `json:"may_link_citizen_registry"`
	MayLinkBusinessRegistry bool `json:"may_link_business_registry"`
}

// Configuration is the case-type configuration for one case-type version.
type Configuration struct {
	CaseTypeVersionID            id.CaseTypeVersionID                   `json:"case_type_version_id"`
	CaseTypeDescription          string                                 `json:"case_type_description"`
	HumanTaskDefinitions         []string                               `json:"human_task_definitions"`
	UserEventListenerDefinitions []string                               `json:"user_event_listener_definitions"`
	CompletionReasons            map[id.EndingReasonID]CompletionReason `json:"completion_reasons"`
	DefaultGroup                 string                                 `json:"default_group"`
	DefaultUser                  string                                 `json:"default_user"`
	SenderPolicy                 SenderPolicy                           `json:"sender_policy"`
	LinkingPolicy                LinkingPolicy                          `json:"linking_policy"`
	MailTemplateBindings         map[string]string                      `json:"mail_template_bindings"`
	// Placeholder stays true until an administrator configures the record.
	Placeholder bool      `json:"placeholder"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPlaceholder returns the empty configuration created on first publish of a case type.
func NewPlaceholder(versionID id.CaseTypeVersionID, description string, now time.Time) *Configuration {
	return &Configuration{
		CaseTypeVersionID:    versionID,
		CaseTypeDescription:  description,
		CompletionReasons:    map[id.EndingReasonID]CompletionReason{},
		MailTemplateBindings: map[string]string{},
		Placeholder:          true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := *c
	out.HumanTaskDefinitions = slices.Clone(c.HumanTaskDefinitions)
	out.UserEventListenerDefinitions = slices.Clone(c.UserEventListenerDefinitions)
	out.SenderPolicy.Allowed = slices.Clone(c.SenderPolicy.Allowed)
	out.CompletionReasons = maps.Clone(c.CompletionReasons)
	if out.CompletionReasons == nil {
		out.CompletionReasons = map[id.EndingReasonID]CompletionReason{}
	}
	out.MailTemplateBindings = maps.Clone(c.MailTemplateBindings)
	if out.MailTemplateBindings == nil {
		out.MailTemplateBindings = map[string]string{}
	}
	return &out
}

// CompletionReasonFor looks up the result type an ending reason maps to.
func (c *Configuration) CompletionReasonFor(reason id.EndingReasonID) (CompletionReason, bool) {
	r, ok := c.CompletionReasons[reason]
	return r, ok
}

// VersionPublished is the catalog notification that a case-type version was published.
type VersionPublished struct {
	VersionID   id.CaseTypeVersionID `json:"version_id"`
	Description string               `json:"description"`
	IsConcept   bool                 `json:"is_concept"`
	ResultTypes []catalog.ResultType `json:"result_types"`
}

// FromCaseType builds the notification equivalent of a catalog read.
func FromCaseType(ct catalog.CaseType) VersionPublished {
	return VersionPublished{
		VersionID:   ct.VersionID,
		Description: ct.Description,
		IsConcept:   ct.IsConcept,
		ResultTypes: ct.ResultTypes,
	}
}
