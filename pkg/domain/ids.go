// Package domain holds typed identifiers shared across modules.
//
// Identifiers are distinct types over uuid.UUID so a case id can never be
// passed where a case-type version id is expected. Construct them from
// external input with the Parse functions; they reject empty, malformed and
// nil values.
package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "zac/pkg/domain-errors"
)

// CaseID is the internal identifier of a case (zaak).
type CaseID uuid.UUID

// CaseTypeVersionID identifies one published version of a case type.
type CaseTypeVersionID uuid.UUID

// ResultTypeRef identifies a result type within a case-type version.
type ResultTypeRef uuid.UUID

// EndingReasonID identifies an administrator-defined ending reason.
// Ending reasons are numbered, not UUIDs.
type EndingReasonID int64

func (id CaseID) String() string            { return uuid.UUID(id).String() }
func (id CaseID) IsNil() bool               { return uuid.UUID(id) == uuid.Nil }
func (id CaseTypeVersionID) String() string { return uuid.UUID(id).String() }
func (id CaseTypeVersionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ResultTypeRef) String() string     { return uuid.UUID(id).String() }
func (id ResultTypeRef) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id EndingReasonID) String() string    { return strconv.FormatInt(int64(id), 10) }

// NewCaseID returns a fresh random case id.
func NewCaseID() CaseID { return CaseID(uuid.New()) }

// ParseCaseID parses a case id from external input.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case id")
	return CaseID(u), err
}

// ParseCaseTypeVersionID parses a case-type version id from external input.
func ParseCaseTypeVersionID(s string) (CaseTypeVersionID, error) {
	u, err := parseUUID(s, "case type version id")
	return CaseTypeVersionID(u), err
}

// ParseResultTypeRef parses a result type reference from external input.
func ParseResultTypeRef(s string) (ResultTypeRef, error) {
	u, err := parseUUID(s, "result type")
	return ResultTypeRef(u), err
}

// ParseEndingReasonID parses an ending reason id. Anything that is not a
// positive integer is rejected with CodeBadRequest: the caller passed
// something that is not an identifier at all.
func ParseEndingReasonID(s string) (EndingReasonID, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "ending reason id %q is not a valid identifier", s)
	}
	return EndingReasonID(n), nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

func (id CaseID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *CaseID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id CaseTypeVersionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *CaseTypeVersionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id ResultTypeRef) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *ResultTypeRef) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
