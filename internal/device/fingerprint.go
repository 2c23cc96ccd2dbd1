// Package device binds scanner hardware to stable identities: a display name
// parsed from the user agent and a fingerprint that survives minor browser
// updates but flags real client changes.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Service computes and compares device fingerprints. When disabled, all
// fingerprints are empty and drift detection is off.
type Service struct {
	enabled bool
}

// NewService constructs a fingerprint Service.
func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ParseUserAgent renders a human-readable device name from a raw user agent,
// in the form "<browser> on <os>".
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)
	name, _ := ua.Browser()
	if name == "" {
		name = "Unknown Browser"
	}
	os := ua.OSInfo().FullName
	if os == "" {
		os = ua.OS()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(strings.Join(strings.Fields(name+" on "+os), " "))
}

// ComputeFingerprint hashes the stable parts of a user agent: browser name,
// major version and OS. Minor and patch updates keep the fingerprint; a
// different browser or major version changes it.
func (s *Service) ComputeFingerprint(raw string) string {
	if !s.enabled || strings.TrimSpace(raw) == "" {
		return ""
	}

	ua := useragent.New(raw)
	name, version := ua.Browser()
	major := version
	if idx := strings.Index(version, "."); idx >= 0 {
		major = version[:idx]
	}
	os := ua.OSInfo().FullName
	if os == "" {
		os = ua.OS()
	}

	normalized := name + "|" + major + "|" + os
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether a presented fingerprint matches the
// stored one, and whether the difference counts as drift. Drift is logged by
// callers, never blocking; fingerprints are a signal, not an authenticator.
func (s *Service) CompareFingerprints(stored, presented string) (matched, drift bool) {
	if stored == "" || presented == "" {
		return false, false
	}
	if stored == presented {
		return true, false
	}
	return false, true
}
