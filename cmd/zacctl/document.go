package main

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	cfgmodels "zac/internal/configuration/models"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
)

// document is the YAML form of a configuration. Completion reasons are keyed
// by ending reason id and only carry the result type ref; the description is
// filled in from the catalog on import.
type document struct {
	VersionID                    string                `yaml:"version_id"`
	Description                  string                `yaml:"description,omitempty"`
	Placeholder                  bool                  `yaml:"placeholder,omitempty"`
	HumanTaskDefinitions         []string              `yaml:"human_task_definitions,omitempty"`
	UserEventListenerDefinitions []string              `yaml:"user_event_listener_definitions,omitempty"`
	CompletionReasons            []documentReason      `yaml:"completion_reasons,omitempty"`
	DefaultGroup                 string                `yaml:"default_group,omitempty"`
	DefaultUser                  string                `yaml:"default_user,omitempty"`
	SenderPolicy                 documentSenderPolicy  `yaml:"sender_policy"`
	LinkingPolicy                documentLinkingPolicy `yaml:"linking_policy"`
	MailTemplateBindings         map[string]string     `yaml:"mail_template_bindings,omitempty"`
}

type documentReason struct {
	EndingReasonID        int64  `yaml:"ending_reason_id"`
	ResultTypeRef         string `yaml:"result_type_ref"`
	ResultTypeDescription string `yaml:"result_type_description,omitempty"`
}

type documentSenderPolicy struct {
	Allowed []string `yaml:"allowed,omitempty"`
	Default string   `yaml:"default,omitempty"`
}

type documentLinkingPolicy struct {
	MayLinkCitizenRegistry  bool `yaml:"may_link_citizen_registry"`
	MayLinkBusinessRegistry bool `yaml:"may_link_business_registry"`
}

func parseDocument(r io.Reader) (*document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid configuration document")
	}
	return &doc, nil
}

func (d *document) toModel() (*cfgmodels.Configuration, error) {
	versionID, err := id.ParseCaseTypeVersionID(d.VersionID)
	if err != nil {
		return nil, err
	}
	cfg := &cfgmodels.Configuration{
		CaseTypeVersionID:            versionID,
		HumanTaskDefinitions:         d.HumanTaskDefinitions,
		UserEventListenerDefinitions: d.UserEventListenerDefinitions,
		CompletionReasons:            make(map[id.EndingReasonID]cfgmodels.CompletionReason, len(d.CompletionReasons)),
		DefaultGroup:                 d.DefaultGroup,
		DefaultUser:                  d.DefaultUser,
		SenderPolicy:                 cfgmodels.SenderPolicy{Allowed: d.SenderPolicy.Allowed, Default: d.SenderPolicy.Default},
		LinkingPolicy: cfgmodels.LinkingPolicy{
			MayLinkCitizenRegistry:  d.LinkingPolicy.MayLinkCitizenRegistry,
			MayLinkBusinessRegistry: d.LinkingPolicy.MayLinkBusinessRegistry,
		},
		MailTemplateBindings: d.MailTemplateBindings,
	}
	if cfg.MailTemplateBindings == nil {
		cfg.MailTemplateBindings = map[string]string{}
	}
	for _, r := range d.CompletionReasons {
		if r.EndingReasonID <= 0 {
			return nil, dErrors.Newf(dErrors.CodeValidation, "ending reason id %d is not valid", r.EndingReasonID)
		}
		reason := id.EndingReasonID(r.EndingReasonID)
		if _, dup := cfg.CompletionReasons[reason]; dup {
			return nil, dErrors.Newf(dErrors.CodeValidation, "ending reason %s is listed twice", reason)
		}
		ref, err := id.ParseResultTypeRef(r.ResultTypeRef)
		if err != nil {
			return nil, fmt.Errorf("ending reason %s: %w", reason, err)
		}
		cfg.CompletionReasons[reason] = cfgmodels.CompletionReason{ResultTypeRef: ref}
	}
	return cfg, nil
}

// toDocument renders cfg with completion reasons ordered by ending reason id.
func toDocument(cfg *cfgmodels.Configuration) document {
	doc := document{
		VersionID:                    cfg.CaseTypeVersionID.String(),
		Description:                  cfg.CaseTypeDescription,
		Placeholder:                  cfg.Placeholder,
		HumanTaskDefinitions:         cfg.HumanTaskDefinitions,
		UserEventListenerDefinitions: cfg.UserEventListenerDefinitions,
		DefaultGroup:                 cfg.DefaultGroup,
		DefaultUser:                  cfg.DefaultUser,
		SenderPolicy:                 documentSenderPolicy{Allowed: cfg.SenderPolicy.Allowed, Default: cfg.SenderPolicy.Default},
		LinkingPolicy: documentLinkingPolicy{
			MayLinkCitizenRegistry:  cfg.LinkingPolicy.MayLinkCitizenRegistry,
			MayLinkBusinessRegistry: cfg.LinkingPolicy.MayLinkBusinessRegistry,
		},
		MailTemplateBindings: cfg.MailTemplateBindings,
	}
	for reason, cr := range cfg.CompletionReasons {
		doc.CompletionReasons = append(doc.CompletionReasons, documentReason{
			EndingReasonID:        int64(reason),
			ResultTypeRef:         cr.ResultTypeRef.String(),
			ResultTypeDescription: cr.ResultTypeDescription,
		})
	}
	sort.Slice(doc.CompletionReasons, func(i, j int) bool {
		return doc.CompletionReasons[i].EndingReasonID < doc.CompletionReasons[j].EndingReasonID
	})
	return doc
}
