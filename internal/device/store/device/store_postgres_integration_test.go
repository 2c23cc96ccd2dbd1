//go:build integration

package device_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/device/models"
	devicestore "turnstile/internal/device/store/device"
	id "turnstile/pkg/domain"
	"turnstile/pkg/platform/sentinel"
	"turnstile/pkg/testutil/containers"
)

type PostgresDeviceSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *devicestore.PostgresDeviceStore
}

func TestPostgresDeviceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDeviceSuite))
}

func (s *PostgresDeviceSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = devicestore.NewPostgres(s.postgres.DB)
}

func (s *PostgresDeviceSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "devices")
	s.Require().NoError(err)
}

func (s *PostgresDeviceSuite) newDevice(name string) *models.Device {
	device, err := models.NewDevice(
		id.DeviceID(uuid.New()),
		name,
		"Chrome on Mac OS X",
		"fp-"+uuid.NewString(),
		"$2a$10$notarealhashbutlongenough",
		time.Now().UTC(),
	)
	s.Require().NoError(err)
	return device
}

func (s *PostgresDeviceSuite) TestCreateAndFind() {
	ctx := context.Background()

	device := s.newDevice("gate-a-" + uuid.NewString())
	s.Require().NoError(s.store.Create(ctx, device))

	found, err := s.store.FindByID(ctx, device.ID)
	s.Require().NoError(err)
	s.Equal(device.Name, found.Name)
	s.Equal(device.DisplayName, found.DisplayName)
	s.Equal(device.Fingerprint, found.Fingerprint)
	s.False(found.Revoked)
	s.Empty(found.CurrentJTI)
}

func (s *PostgresDeviceSuite) TestDuplicateNameConflicts() {
	ctx := context.Background()
	name := "gate-b-" + uuid.NewString()

	s.Require().NoError(s.store.Create(ctx, s.newDevice(name)))
	s.ErrorIs(s.store.Create(ctx, s.newDevice(name)), sentinel.ErrConflict)
}

// TestRevokeReturnsPriorJTI verifies revocation atomically clears and returns
// the outstanding token ID so the caller can put it on the revocation list.
func (s *PostgresDeviceSuite) TestRevokeReturnsPriorJTI() {
	ctx := context.Background()

	device := s.newDevice("gate-c-" + uuid.NewString())
	s.Require().NoError(s.store.Create(ctx, device))

	jti := uuid.NewString()
	s.Require().NoError(s.store.SetCurrentJTI(ctx, device.ID, jti))

	returned, err := s.store.Revoke(ctx, device.ID)
	s.Require().NoError(err)
	s.Equal(jti, returned)

	found, err := s.store.FindByID(ctx, device.ID)
	s.Require().NoError(err)
	s.True(found.Revoked)
	s.Empty(found.CurrentJTI)
}

func (s *PostgresDeviceSuite) TestNotFound() {
	ctx := context.Background()
	missing := id.DeviceID(uuid.New())

	_, err := s.store.FindByID(ctx, missing)
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.SetCurrentJTI(ctx, missing, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Revoke(ctx, missing)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresDeviceSuite) TestFindByIDs() {
	ctx := context.Background()

	a := s.newDevice("gate-d-" + uuid.NewString())
	b := s.newDevice("gate-e-" + uuid.NewString())
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	found, err := s.store.FindByIDs(ctx, []id.DeviceID{a.ID, b.ID, id.DeviceID(uuid.New())})
	s.Require().NoError(err)
	s.Len(found, 2)
	s.Equal(a.Name, found[a.ID].Name)
	s.Equal(b.Name, found[b.ID].Name)

	empty, err := s.store.FindByIDs(ctx, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}
