package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "zac/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCaseID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseCaseID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseCaseID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseCaseID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, CaseID(validUUID), id)
	})
}

func TestParseID_RejectsHostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE cases;--", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCaseTypeVersionID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errCase := ParseCaseID(validUUID)
		_, errVersion := ParseCaseTypeVersionID(validUUID)
		_, errResult := ParseResultTypeRef(validUUID)
		require.NoError(t, errCase)
		require.NoError(t, errVersion)
		require.NoError(t, errResult)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errCase := ParseCaseID(input)
			_, errVersion := ParseCaseTypeVersionID(input)
			_, errResult := ParseResultTypeRef(input)
			require.Error(t, errCase)
			require.Error(t, errVersion)
			require.Error(t, errResult)
		})
	}
}

func TestParseEndingReasonID(t *testing.T) {
	t.Run("accepts positive integers", func(t *testing.T) {
		id, err := ParseEndingReasonID(" 42 ")
		require.NoError(t, err)
		assert.Equal(t, EndingReasonID(42), id)
		assert.Equal(t, "42", id.String())
	})

	for _, input := range []string{"", "abc", "0", "-3", "4.2"} {
		t.Run("rejects "+input, func(t *testing.T) {
			_, err := ParseEndingReasonID(input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	}
}

func TestIDs_EncodeAsJSONStrings(t *testing.T) {
	caseID := NewCaseID()
	b, err := json.Marshal(map[string]CaseID{"id": caseID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+caseID.String()+`"}`, string(b))

	var decoded struct {
		ID CaseTypeVersionID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"`+caseID.String()+`"}`), &decoded))
	assert.Equal(t, caseID.String(), decoded.ID.String())
}
