package static

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "zac/pkg/domain"
	"zac/pkg/platform/sentinel"
)

func document(published, concept, granted uuid.UUID) string {
	return `
case_types:
  - version_id: ` + published.String() + `
    description: Bezwaar
    extension_allowed: true
    extension_term_days: 42
    result_types:
      - ref: ` + granted.String() + `
        description: Toegekend
  - version_id: ` + concept.String() + `
    description: Bezwaar
    concept: true
`
}

func TestLoad(t *testing.T) {
	published, concept, granted := uuid.New(), uuid.New(), uuid.New()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document(published, concept, granted)), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	ct, err := c.ReadCaseType(context.Background(), id.CaseTypeVersionID(published))
	require.NoError(t, err)
	assert.Equal(t, "Bezwaar", ct.Description)
	assert.True(t, ct.ExtensionAllowed)
	assert.Equal(t, 42, ct.ExtensionTermDays)
	assert.True(t, ct.HasResultType(id.ResultTypeRef(granted)))

	list, err := c.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id.CaseTypeVersionID(published), list[0].VersionID)

	_, err = c.ReadCaseType(context.Background(), id.CaseTypeVersionID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestReadReturnsCopies(t *testing.T) {
	published, concept, granted := uuid.New(), uuid.New(), uuid.New()
	c, err := Parse(strings.NewReader(document(published, concept, granted)))
	require.NoError(t, err)

	ct, err := c.ReadCaseType(context.Background(), id.CaseTypeVersionID(published))
	require.NoError(t, err)
	ct.ResultTypes[0].Description = "changed"

	again, err := c.ReadCaseType(context.Background(), id.CaseTypeVersionID(published))
	require.NoError(t, err)
	assert.Equal(t, "Toegekend", again.ResultTypes[0].Description)
}

func TestParseRejectsBadDocuments(t *testing.T) {
	v := uuid.NewString()
	tests := map[string]string{
		"unknown key":         "case_types:\n  - version_id: " + v + "\n    description: X\n    colour: red\n",
		"missing description": "case_types:\n  - version_id: " + v + "\n",
		"bad version id":      "case_types:\n  - version_id: nope\n    description: X\n",
		"duplicate version":   "case_types:\n  - version_id: " + v + "\n    description: X\n  - version_id: " + v + "\n    description: Y\n",
		"bad result ref":      "case_types:\n  - version_id: " + v + "\n    description: X\n    result_types:\n      - ref: nope\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	list, err := c.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
