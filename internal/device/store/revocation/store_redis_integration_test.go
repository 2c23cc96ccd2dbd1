//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/device/store/revocation"
	"turnstile/pkg/testutil/containers"
)

type RedisTRLSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *revocation.RedisTRL
}

func TestRedisTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTRLSuite))
}

func (s *RedisTRLSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = revocation.NewRedisTRL(s.redis.Client)
}

func (s *RedisTRLSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTRLSuite) TestRevokeAndCheck() {
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

// TestEntryExpiresWithTTL verifies the Redis key expiry bounds the list to
// the token lifetime.
func (s *RedisTRLSuite) TestEntryExpiresWithTTL() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.store.RevokeToken(ctx, jti, 100*time.Millisecond))

	s.Require().Eventually(func() bool {
		revoked, err := s.store.IsTokenRevoked(ctx, jti)
		return err == nil && !revoked
	}, 2*time.Second, 50*time.Millisecond)
}

func (s *RedisTRLSuite) TestEmptyJTIIsNoOp() {
	ctx := context.Background()

	s.Require().NoError(s.store.RevokeToken(ctx, "", time.Hour))

	revoked, err := s.store.IsTokenRevoked(ctx, "")
	s.Require().NoError(err)
	s.False(revoked)
}
