package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "turnstile/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
//
// Justification: This is a pure function enforcing a domain invariant
// at trust boundaries.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRegistrationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRegistrationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRegistrationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseRegistrationID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, RegistrationID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	registrationID := RegistrationID(uuid.New())
	studentID := StudentID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ RegistrationID = studentID   // compile error
	// var _ StudentID = registrationID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(registrationID), uuid.UUID(studentID))
}

// TestParseID_SecurityInvariants validates security-critical parsing rules.
//
// Justification: These are trust boundary invariants - parsing must reject
// attack vectors at API entry points.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE registrations;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400​-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistrationID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical parsing behavior.
//
// Justification: Inconsistent validation across ID types could create security holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	// All types should accept valid UUID
	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errRegistration := ParseRegistrationID(validUUID)
		_, errStudent := ParseStudentID(validUUID)
		_, errEvent := ParseEventID(validUUID)
		_, errDevice := ParseDeviceID(validUUID)
		_, errRecord := ParseRecordID(validUUID)

		require.NoError(t, errRegistration)
		require.NoError(t, errStudent)
		require.NoError(t, errEvent)
		require.NoError(t, errDevice)
		require.NoError(t, errRecord)
	})

	// All types should reject invalid inputs identically
	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errRegistration := ParseRegistrationID(input)
			_, errStudent := ParseStudentID(input)
			_, errEvent := ParseEventID(input)
			_, errDevice := ParseDeviceID(input)
			_, errRecord := ParseRecordID(input)

			require.Error(t, errRegistration)
			require.Error(t, errStudent)
			require.Error(t, errEvent)
			require.Error(t, errDevice)
			require.Error(t, errRecord)
		})
	}
}

// TestScanOutcome_Allowlist validates the closed outcome set.
func TestScanOutcome_Allowlist(t *testing.T) {
	t.Run("accepts supported outcomes", func(t *testing.T) {
		for _, s := range []string{"accepted", "duplicate", "invalid", "expired"} {
			o, err := ParseScanOutcome(s)
			require.NoError(t, err)
			assert.True(t, o.IsValid())
			assert.Equal(t, s, o.String())
		}
	})

	t.Run("rejects empty and unknown", func(t *testing.T) {
		for _, s := range []string{"", "ACCEPTED", "ok", "rejected"} {
			_, err := ParseScanOutcome(s)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}
