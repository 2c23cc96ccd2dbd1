// Package service owns the device registry: enrollment, token authentication
// and revocation for the scanners allowed to check students in.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"turnstile/internal/device"
	"turnstile/internal/device/models"
	"turnstile/internal/device/secrets"
	"turnstile/pkg/attrs"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
	audit "turnstile/pkg/platform/audit"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/requestcontext"
)

// DeviceStore is the registry persistence the service needs.
type DeviceStore interface {
	Create(ctx context.Context, device *models.Device) error
	FindByID(ctx context.Context, deviceID id.DeviceID) (*models.Device, error)
	FindByIDs(ctx context.Context, ids []id.DeviceID) (map[id.DeviceID]*models.Device, error)
	SetCurrentJTI(ctx context.Context, deviceID id.DeviceID, jti string) error
	Revoke(ctx context.Context, deviceID id.DeviceID) (string, error)
}

// TokenIssuer signs device bearer tokens.
type TokenIssuer interface {
	GenerateDeviceToken(deviceID uuid.UUID, deviceName, fingerprint string, expiresIn time.Duration) (token, jti string, err error)
}

// RevocationList tracks revoked token jtis.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuditPublisher emits audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates device registry operations.
type Service struct {
	store          DeviceStore
	tokens         TokenIssuer
	revocations    RevocationList
	fingerprints   *device.Service
	tokenTTL       time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

// WithTokenTTL overrides the device token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// New constructs a device Service.
func New(store DeviceStore, tokens TokenIssuer, revocations RevocationList, fingerprints *device.Service, opts ...Option) *Service {
	s := &Service{
		store:        store,
		tokens:       tokens,
		revocations:  revocations,
		fingerprints: fingerprints,
		tokenTTL:     12 * time.Hour,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enroll registers a scanner and returns its one-time secret. Only the
// bcrypt hash is stored; a lost secret means re-enrollment.
func (s *Service) Enroll(ctx context.Context, name string) (*models.Enrollment, error) {
	secret, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate device secret")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash device secret")
	}

	userAgent := requestcontext.UserAgent(ctx)
	dev, err := models.NewDevice(
		id.DeviceID(uuid.New()),
		name,
		device.ParseUserAgent(userAgent),
		s.fingerprints.ComputeFingerprint(userAgent),
		hash,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, dev); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "device name already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll device")
	}

	s.logAudit(ctx, audit.EventDeviceEnrolled, dev.ID.String(),
		"device_name", dev.Name,
		"display_name", dev.DisplayName,
	)
	return &models.Enrollment{Device: dev, Secret: secret}, nil
}

// Authenticate exchanges a device secret for a bearer token. The issued jti
// is tracked so revoking the device also revokes the outstanding token.
// Fingerprint drift against the enrollment user agent is logged, not
// blocking.
func (s *Service) Authenticate(ctx context.Context, deviceID id.DeviceID, secret string) (string, error) {
	dev, err := s.store.FindByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid device credentials")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load device")
	}
	if dev.Revoked {
		return "", dErrors.New(dErrors.CodeUnauthorized, "device is revoked")
	}
	if err := secrets.Verify(secret, dev.SecretHash); err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid device credentials")
	}

	presented := s.fingerprints.ComputeFingerprint(requestcontext.UserAgent(ctx))
	if _, drift := s.fingerprints.CompareFingerprints(dev.Fingerprint, presented); drift {
		s.logger.WarnContext(ctx, "device fingerprint drift",
			"request_id", requestcontext.RequestID(ctx),
			"device_id", dev.ID,
		)
	}

	token, jti, err := s.tokens.GenerateDeviceToken(uuid.UUID(dev.ID), dev.Name, dev.Fingerprint, s.tokenTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue device token")
	}
	if err := s.store.SetCurrentJTI(ctx, dev.ID, jti); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to track device token")
	}

	s.logAudit(ctx, audit.EventDeviceAuthenticated, dev.ID.String())
	return token, nil
}

// Revoke disables a device and revokes its outstanding token. The revocation
// entry lives as long as the longest token could.
func (s *Service) Revoke(ctx context.Context, deviceID id.DeviceID) error {
	jti, err := s.store.Revoke(ctx, deviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "device not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke device")
	}

	if jti != "" && s.revocations != nil {
		if err := s.revocations.RevokeToken(ctx, jti, s.tokenTTL); err != nil {
			// The device row is already revoked, which blocks re-auth; the
			// outstanding token expiring is the fallback.
			s.logger.ErrorContext(ctx, "failed to revoke device token",
				"request_id", requestcontext.RequestID(ctx),
				"device_id", deviceID,
				"error", err,
			)
		}
	}

	s.logAudit(ctx, audit.EventDeviceRevoked, deviceID.String())
	return nil
}

// Get returns one device.
func (s *Service) Get(ctx context.Context, deviceID id.DeviceID) (*models.Device, error) {
	dev, err := s.store.FindByID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "device not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load device")
	}
	return dev, nil
}

// NamesByID resolves display names for a batch of devices. Unknown devices
// are absent from the result; callers fall back to the raw ID.
func (s *Service) NamesByID(ctx context.Context, ids []id.DeviceID) (map[id.DeviceID]string, error) {
	devices, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load devices")
	}
	out := make(map[id.DeviceID]string, len(devices))
	for deviceID, dev := range devices {
		out[deviceID] = dev.Name
	}
	return out, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, subject string, logAttrs ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append([]any{
		"request_id", requestID,
		"log_type", "audit",
		"action", string(event),
		"subject", subject,
	}, logAttrs...)
	s.logger.InfoContext(ctx, "audit event", args...)

	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   subject,
		Action:    string(event),
		Reason:    attrs.ExtractString(logAttrs, "reason"),
		ActorID:   requestcontext.Actor(ctx),
		RequestID: requestID,
	})
}
