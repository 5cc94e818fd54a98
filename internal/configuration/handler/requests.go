package handler

import (
	"zac/internal/configuration/models"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/httputil"
)

type completionReasonRequest struct {
	ResultTypeRef string `json:"result_type_ref" validate:"required,uuid"`
}

type senderPolicyRequest struct {
	Allowed []string `json:"allowed" validate:"dive,email"`
	Default string   `json:"default" validate:"omitempty,email"`
}

// updateConfigurationRequest carries the administrator-managed fields.
// Completion reasons are keyed by ending reason id.
type updateConfigurationRequest struct {
	HumanTaskDefinitions         []string                           `json:"human_task_definitions" validate:"dive,required,max=200"`
	UserEventListenerDefinitions []string                           `json:"user_event_listener_definitions" validate:"dive,required,max=200"`
	CompletionReasons            map[string]completionReasonRequest `json:"completion_reasons" validate:"dive"`
	DefaultGroup                 string                             `json:"default_group" validate:"max=100"`
	DefaultUser                  string                             `json:"default_user" validate:"max=100"`
	SenderPolicy                 senderPolicyRequest                `json:"sender_policy"`
	LinkingPolicy                models.LinkingPolicy               `json:"linking_policy"`
	MailTemplateBindings         map[string]string                  `json:"mail_template_bindings"`
}

func (r *updateConfigurationRequest) Validate() error { return httputil.ValidateStruct(r) }

func (r *updateConfigurationRequest) toModel(versionID id.CaseTypeVersionID) (*models.Configuration, error) {
	cfg := &models.Configuration{
		CaseTypeVersionID:            versionID,
		HumanTaskDefinitions:         r.HumanTaskDefinitions,
		UserEventListenerDefinitions: r.UserEventListenerDefinitions,
		CompletionReasons:            make(map[id.EndingReasonID]models.CompletionReason, len(r.CompletionReasons)),
		DefaultGroup:                 r.DefaultGroup,
		DefaultUser:                  r.DefaultUser,
		SenderPolicy:                 models.SenderPolicy{Allowed: r.SenderPolicy.Allowed, Default: r.SenderPolicy.Default},
		LinkingPolicy:                r.LinkingPolicy,
		MailTemplateBindings:         r.MailTemplateBindings,
	}
	for key, cr := range r.CompletionReasons {
		reason, err := id.ParseEndingReasonID(key)
		if err != nil {
			return nil, err
		}
		ref, err := id.ParseResultTypeRef(cr.ResultTypeRef)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid result type ref")
		}
		cfg.CompletionReasons[reason] = models.CompletionReason{ResultTypeRef: ref}
	}
	if cfg.MailTemplateBindings == nil {
		cfg.MailTemplateBindings = map[string]string{}
	}
	return cfg, nil
}

type notificationResponse struct {
	VersionID string `json:"version_id"`
	Outcome   string `json:"outcome"`
}
