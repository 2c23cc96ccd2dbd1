// Package models holds the device registry entities: the scanners allowed to
// submit check-in attempts.
package models

import (
	"strings"
	"time"

	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
)

// Device is one enrolled scanner. The secret is stored only as a bcrypt
// hash; the plaintext is shown once at enrollment.
type Device struct {
	ID   id.DeviceID
	Name string
	// DisplayName is parsed from the enrolling user agent ("Chrome on Mac OS X").
	DisplayName string
	// Fingerprint is the stable user-agent hash captured at enrollment.
	// Later drift is logged, never blocking.
	Fingerprint string
	SecretHash  string
	Revoked     bool
	// CurrentJTI tracks the most recently issued token so revoking the
	// device can also revoke its outstanding token.
	CurrentJTI string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDevice validates invariants and constructs an active Device.
func NewDevice(deviceID id.DeviceID, name, displayName, fingerprint, secretHash string, now time.Time) (*Device, error) {
	name = strings.TrimSpace(name)
	if deviceID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device id cannot be zero")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device name cannot be empty")
	}
	if secretHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device secret hash cannot be empty")
	}
	return &Device{
		ID:          deviceID,
		Name:        name,
		DisplayName: displayName,
		Fingerprint: fingerprint,
		SecretHash:  secretHash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Enrollment is the one-time response to a device enrollment: the plaintext
// secret appears here and nowhere else.
type Enrollment struct {
	Device *Device
	Secret string
}
