package domain

import dErrors "turnstile/pkg/domain-errors"

// ScanOutcome is the recorded result of a single scan attempt.
// Invariant: every verification attempt produces exactly one check-in record
// carrying one of these outcomes; the set is closed.
//
// Usage: construct via ParseScanOutcome at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ScanOutcome string

// Supported scan outcomes.
const (
	// OutcomeAccepted: the registration transitioned issued -> checked_in.
	OutcomeAccepted ScanOutcome = "accepted"
	// OutcomeDuplicate: the registration was already checked in. Not an
	// error; callers surface "already checked in at <time>".
	OutcomeDuplicate ScanOutcome = "duplicate"
	// OutcomeInvalid: unknown registration, failed verification, or a voided
	// registration. Always a rejected scan.
	OutcomeInvalid ScanOutcome = "invalid"
	// OutcomeExpired: the event's check-in window had closed.
	OutcomeExpired ScanOutcome = "expired"
)

// validScanOutcomes is the single source of truth for valid outcomes.
var validScanOutcomes = map[ScanOutcome]bool{
	OutcomeAccepted:  true,
	OutcomeDuplicate: true,
	OutcomeInvalid:   true,
	OutcomeExpired:   true,
}

// ParseScanOutcome constructs a ScanOutcome from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseScanOutcome(s string) (ScanOutcome, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "outcome cannot be empty")
	}
	o := ScanOutcome(s)
	if !o.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid outcome")
	}
	return o, nil
}

// IsValid checks if the outcome is one of the supported enum values.
func (o ScanOutcome) IsValid() bool {
	return validScanOutcomes[o]
}

// String returns the string representation of the outcome.
func (o ScanOutcome) String() string {
	return string(o)
}
