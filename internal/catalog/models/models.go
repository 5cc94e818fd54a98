// Package models holds the catalog's view of case types as this service consumes it.
package models

import (
	id "zac/pkg/domain"
)

// ResultType is one outcome classification of a case-type version.
// Descriptions are stable across versions; refs are not.
type ResultType struct {
	Ref         id.ResultTypeRef `json:"ref"`
	Description string           `json:"description"`
}

// CaseType is one version of a case type as published by the catalog.
type CaseType struct {
	VersionID         id.CaseTypeVersionID `json:"version_id"`
	Description       string               `json:"description"`
	IsConcept         bool                 `json:"is_concept"`
	ResultTypes       []ResultType         `json:"result_types"`
	ExtensionAllowed  bool                 `json:"extension_allowed"`
	ExtensionTermDays int                  `json:"extension_term_days"`
}

// HasResultType reports whether ref belongs to this version.
func (c CaseType) HasResultType(ref id.ResultTypeRef) bool {
	for _, rt := range c.ResultTypes {
		if rt.Ref == ref {
			return true
		}
	}
	return false
}

// ResultTypeByDescription finds the result type with exactly this description.
func (c CaseType) ResultTypeByDescription(description string) (ResultType, bool) {
	for _, rt := range c.ResultTypes {
		if rt.Description == description {
			return rt, true
		}
	}
	return ResultType{}, false
}
