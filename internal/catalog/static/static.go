// Package static serves case types from a YAML file. It stands in for the
// catalog API in development and backs the zacctl publish command.
package static

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"zac/internal/catalog/models"
	id "zac/pkg/domain"
	dErrors "zac/pkg/domain-errors"
	"zac/pkg/platform/sentinel"
)

type fileResultType struct {
	Ref         string `yaml:"ref"`
	Description string `yaml:"description"`
}

type fileCaseType struct {
	VersionID         string           `yaml:"version_id"`
	Description       string           `yaml:"description"`
	Concept           bool             `yaml:"concept"`
	ExtensionAllowed  bool             `yaml:"extension_allowed"`
	ExtensionTermDays int              `yaml:"extension_term_days"`
	ResultTypes       []fileResultType `yaml:"result_types"`
}

type file struct {
	CaseTypes []fileCaseType `yaml:"case_types"`
}

// Catalog is an immutable in-memory catalog.
type Catalog struct {
	byVersion map[id.CaseTypeVersionID]models.CaseType
	order     []id.CaseTypeVersionID
}

// Load reads the catalog from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc file
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}

	c := &Catalog{byVersion: make(map[id.CaseTypeVersionID]models.CaseType, len(doc.CaseTypes))}
	for i, fct := range doc.CaseTypes {
		ct, err := fct.toModel()
		if err != nil {
			return nil, fmt.Errorf("case type %d: %w", i, err)
		}
		if _, dup := c.byVersion[ct.VersionID]; dup {
			return nil, fmt.Errorf("case type %d: duplicate version id %s", i, ct.VersionID)
		}
		c.byVersion[ct.VersionID] = ct
		c.order = append(c.order, ct.VersionID)
	}
	return c, nil
}

func (f fileCaseType) toModel() (models.CaseType, error) {
	versionID, err := id.ParseCaseTypeVersionID(f.VersionID)
	if err != nil {
		return models.CaseType{}, err
	}
	description := strings.TrimSpace(f.Description)
	if description == "" {
		return models.CaseType{}, fmt.Errorf("description is required")
	}
	ct := models.CaseType{
		VersionID:         versionID,
		Description:       description,
		IsConcept:         f.Concept,
		ExtensionAllowed:  f.ExtensionAllowed,
		ExtensionTermDays: f.ExtensionTermDays,
	}
	for _, rt := range f.ResultTypes {
		ref, err := id.ParseResultTypeRef(rt.Ref)
		if err != nil {
			return models.CaseType{}, err
		}
		ct.ResultTypes = append(ct.ResultTypes, models.ResultType{Ref: ref, Description: rt.Description})
	}
	return ct, nil
}

func (c *Catalog) ReadCaseType(_ context.Context, versionID id.CaseTypeVersionID) (models.CaseType, error) {
	ct, ok := c.byVersion[versionID]
	if !ok {
		return models.CaseType{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "case type not found in catalog")
	}
	ct.ResultTypes = slices.Clone(ct.ResultTypes)
	return ct, nil
}

// ListPublished returns the non-concept case types in file order.
func (c *Catalog) ListPublished(_ context.Context) ([]models.CaseType, error) {
	out := make([]models.CaseType, 0, len(c.order))
	for _, v := range c.order {
		ct := c.byVersion[v]
		if ct.IsConcept {
			continue
		}
		ct.ResultTypes = slices.Clone(ct.ResultTypes)
		out = append(out, ct)
	}
	return out, nil
}
