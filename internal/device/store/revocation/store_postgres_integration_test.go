//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/device/store/revocation"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/testutil/containers"
)

type PostgresTRLSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	now      time.Time
	store    *revocation.PostgresTRL
}

func TestPostgresTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTRLSuite))
}

func (s *PostgresTRLSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.now = time.Now().UTC()
	s.store = revocation.NewPostgresTRL(s.postgres.DB,
		revocation.WithClock(func() time.Time { return s.now }),
	)
}

func (s *PostgresTRLSuite) SetupTest() {
	s.now = time.Now().UTC()
	err := s.postgres.TruncateTables(context.Background(), "token_revocations")
	s.Require().NoError(err)
}

func (s *PostgresTRLSuite) TestRevokeAndCheck() {
	ctx := context.Background()
	jti := uuid.NewString()

	revoked, err := s.store.IsTokenRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.store.RevokeToken(ctx, jti, time.Hour))

	revoked, err = s.store.IsTokenRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked)
}

// TestExpiredEntryIsIgnored verifies a revocation past its TTL no longer
// blocks, token lifetime bounds the list.
func (s *PostgresTRLSuite) TestExpiredEntryIsIgnored() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.store.RevokeToken(ctx, jti, time.Minute))

	s.now = s.now.Add(2 * time.Minute)

	revoked, err := s.store.IsTokenRevoked(ctx, jti)
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *PostgresTRLSuite) TestRevokeExtendsExpiry() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.store.RevokeToken(ctx, jti, time.Minute))
	s.Require().NoError(s.store.RevokeToken(ctx, jti, time.Hour))

	s.now = s.now.Add(30 * time.Minute)

	revoked, err := s.store.IsTokenRevoked(ctx, jti)
	s.Require().NoError(err)
	s.True(revoked, "re-revocation should carry the longer expiry")
}

func (s *PostgresTRLSuite) TestInvalidInput() {
	ctx := context.Background()

	// Empty jti is a no-op on both paths.
	s.Require().NoError(s.store.RevokeToken(ctx, "", time.Hour))
	revoked, err := s.store.IsTokenRevoked(ctx, "")
	s.Require().NoError(err)
	s.False(revoked)

	err = s.store.RevokeToken(ctx, uuid.NewString(), 0)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}
