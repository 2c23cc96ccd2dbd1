package pass

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "turnstile/pkg/domain"
)

var registrationID = id.RegistrationID(uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"))

const secret = "8Zl2v5mJ3qTearhGkPxWnY0cDdBfVuSA"

func Test_Encode_Deterministic(t *testing.T) {
	first := Encode(registrationID, secret)
	second := Encode(registrationID, secret)
	assert.Equal(t, first, second, "re-issuing a lost pass must reproduce the artifact")
	assert.True(t, strings.HasPrefix(first, Version+"."))
}

func Test_Decode_RoundTrip(t *testing.T) {
	artifact := Encode(registrationID, secret)

	decodedID, verification, err := Decode(artifact)
	require.NoError(t, err)
	assert.Equal(t, registrationID, decodedID)
	assert.True(t, Verify(decodedID, secret, verification))
}

func Test_Decode_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
	}{
		{"empty", ""},
		{"missing digest", Version + "." + registrationID.String()},
		{"wrong version", "TS0." + registrationID.String() + ".c2ln"},
		{"not a uuid", Version + ".not-a-uuid.c2ln"},
		{"nil uuid", Version + "." + uuid.Nil.String() + ".c2ln"},
		{"empty digest", Version + "." + registrationID.String() + "."},
		{"too many segments", Version + "." + registrationID.String() + ".a.b"},
		{"plain garbage", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.artifact)
			require.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func Test_Verify_RejectsTampering(t *testing.T) {
	artifact := Encode(registrationID, secret)

	t.Run("flipped digest character", func(t *testing.T) {
		tampered := tamperLastRune(artifact)
		decodedID, verification, err := Decode(tampered)
		require.NoError(t, err, "a tampered artifact still parses")
		assert.False(t, Verify(decodedID, secret, verification))
	})

	t.Run("swapped registration id", func(t *testing.T) {
		other := id.RegistrationID(uuid.New())
		parts := strings.SplitN(artifact, ".", 3)
		spliced := parts[0] + "." + other.String() + "." + parts[2]

		decodedID, verification, err := Decode(spliced)
		require.NoError(t, err)
		assert.False(t, Verify(decodedID, secret, verification), "digest must bind to the embedded id")
	})

	t.Run("wrong secret", func(t *testing.T) {
		decodedID, verification, err := Decode(artifact)
		require.NoError(t, err)
		assert.False(t, Verify(decodedID, "someone-elses-secret", verification))
	})
}

func Test_NewSecret_Unique(t *testing.T) {
	first, err := NewSecret()
	require.NoError(t, err)
	second, err := NewSecret()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func Test_Sheet_ContainsCode(t *testing.T) {
	sheet := Sheet(registrationID, secret, SheetData{
		EventTitle:  "Robotics Expo",
		StudentName: "Dana Osei",
		StudentNo:   "S2024-117",
		EventDate:   "2025-03-14",
		EventTime:   "18:00",
		Venue:       "Main Hall",
	})

	assert.Contains(t, sheet, "Event: Robotics Expo")
	assert.Contains(t, sheet, "Student ID: S2024-117")
	assert.Contains(t, sheet, "Registration ID: "+registrationID.String())
	assert.Contains(t, sheet, "Code: "+Encode(registrationID, secret))
}

// tamperLastRune flips the final character to a different base64url character.
func tamperLastRune(s string) string {
	last := s[len(s)-1]
	replacement := byte('A')
	if last == 'A' {
		replacement = 'B'
	}
	return s[:len(s)-1] + string(replacement)
}
