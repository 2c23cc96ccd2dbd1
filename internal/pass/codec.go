// Package pass encodes registration identities into scannable artifacts and
// back. An artifact embeds the registration ID plus a keyed digest derived
// from the registration's secret, so tampering with the ID invalidates the
// digest. Decoding only parses; verification against the ledger's stored
// secret is the caller's job, which keeps "malformed" and "forged" distinct.
package pass

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	id "turnstile/pkg/domain"
)

// Version prefixes every artifact so the format can evolve without breaking
// already-printed passes.
const Version = "TS1"

// ErrInvalidFormat reports an artifact that does not parse. It says nothing
// about authenticity; a well-formed artifact can still fail verification.
var ErrInvalidFormat = errors.New("invalid artifact format")

// NewSecret creates a cryptographically secure per-registration secret.
// Returns a base64-encoded string stored on the registration and never
// embedded in the artifact.
func NewSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// digest computes the verification value for a registration ID under a secret.
func digest(registrationID id.RegistrationID, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(Version + "." + registrationID.String()))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Encode renders a registration into its artifact:
//
//	TS1.<registration uuid>.<base64url digest>
//
// Encoding is deterministic: the same registration and secret always yield
// the same artifact, so a lost pass can be regenerated byte-identically.
func Encode(registrationID id.RegistrationID, secret string) string {
	return Version + "." + registrationID.String() + "." + digest(registrationID, secret)
}

// Decode parses an artifact into its registration ID and verification value.
// Returns ErrInvalidFormat for anything that does not parse; it never checks
// authenticity.
func Decode(artifact string) (id.RegistrationID, string, error) {
	parts := strings.Split(artifact, ".")
	if len(parts) != 3 || parts[0] != Version {
		return id.RegistrationID{}, "", ErrInvalidFormat
	}
	u, err := uuid.Parse(parts[1])
	if err != nil || u == uuid.Nil {
		return id.RegistrationID{}, "", ErrInvalidFormat
	}
	if parts[2] == "" {
		return id.RegistrationID{}, "", ErrInvalidFormat
	}
	return id.RegistrationID(u), parts[2], nil
}

// Verify recomputes the expected verification value from the stored secret
// and compares in constant time. A false result means the artifact was
// forged or corrupted, not malformed.
func Verify(registrationID id.RegistrationID, secret, verificationValue string) bool {
	expected := digest(registrationID, secret)
	return hmac.Equal([]byte(expected), []byte(verificationValue))
}

// SheetData carries the human-readable fields printed alongside the code.
type SheetData struct {
	EventTitle  string
	StudentName string
	StudentNo   string
	EventDate   string
	EventTime   string
	Venue       string
}

// Sheet renders the printable pass: the line-oriented payload shown to the
// student, ending with the scannable code itself.
func Sheet(registrationID id.RegistrationID, secret string, data SheetData) string {
	var b strings.Builder
	b.WriteString("Event: " + data.EventTitle + "\n")
	b.WriteString("Student: " + data.StudentName + "\n")
	b.WriteString("Student ID: " + data.StudentNo + "\n")
	b.WriteString("Event Date: " + data.EventDate + "\n")
	b.WriteString("Event Time: " + data.EventTime + "\n")
	b.WriteString("Venue: " + data.Venue + "\n")
	b.WriteString("Registration ID: " + registrationID.String() + "\n")
	b.WriteString("Code: " + Encode(registrationID, secret) + "\n")
	return b.String()
}
