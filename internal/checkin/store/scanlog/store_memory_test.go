package scanlog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/checkin/models"
	id "turnstile/pkg/domain"
)

type InMemoryScanLogStoreSuite struct {
	suite.Suite
	store *InMemoryScanLogStore
}

func (s *InMemoryScanLogStoreSuite) SetupTest() {
	s.store = New()
}

func (s *InMemoryScanLogStoreSuite) record(regID id.RegistrationID, outcome id.ScanOutcome, at time.Time) models.CheckInRecord {
	return models.CheckInRecord{
		ID:             id.RecordID(uuid.New()),
		RegistrationID: regID,
		Outcome:        outcome,
		DeviceID:       id.DeviceID(uuid.New()),
		At:             at,
	}
}

func (s *InMemoryScanLogStoreSuite) TestAppendAndList() {
	regID := id.RegistrationID(uuid.New())
	base := time.Now().UTC()
	first := s.record(regID, id.OutcomeAccepted, base)
	second := s.record(regID, id.OutcomeDuplicate, base.Add(time.Minute))
	other := s.record(id.RegistrationID(uuid.New()), id.OutcomeInvalid, base)

	require.NoError(s.T(), s.store.Append(context.Background(), first))
	require.NoError(s.T(), s.store.Append(context.Background(), second))
	require.NoError(s.T(), s.store.Append(context.Background(), other))

	records, err := s.store.ListByRegistration(context.Background(), regID)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 2)
	assert.Equal(s.T(), first.ID, records[0].ID)
	assert.Equal(s.T(), second.ID, records[1].ID)
}

func (s *InMemoryScanLogStoreSuite) TestListUnknownRegistrationIsEmpty() {
	records, err := s.store.ListByRegistration(context.Background(), id.RegistrationID(uuid.New()))
	require.NoError(s.T(), err)
	assert.Empty(s.T(), records)
}

func (s *InMemoryScanLogStoreSuite) TestLatestAcceptedByRegistrations() {
	regA := id.RegistrationID(uuid.New())
	regB := id.RegistrationID(uuid.New())
	base := time.Now().UTC()

	older := s.record(regA, id.OutcomeAccepted, base)
	newer := s.record(regA, id.OutcomeAccepted, base.Add(time.Hour))
	rejected := s.record(regB, id.OutcomeInvalid, base)
	require.NoError(s.T(), s.store.Append(context.Background(), older))
	require.NoError(s.T(), s.store.Append(context.Background(), newer))
	require.NoError(s.T(), s.store.Append(context.Background(), rejected))

	latest, err := s.store.LatestAcceptedByRegistrations(context.Background(), []id.RegistrationID{regA, regB})
	require.NoError(s.T(), err)
	require.Len(s.T(), latest, 1)
	assert.Equal(s.T(), newer.ID, latest[regA].ID)
}

func (s *InMemoryScanLogStoreSuite) TestListRecentAccepted() {
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(s.T(), s.store.Append(context.Background(),
			s.record(id.RegistrationID(uuid.New()), id.OutcomeAccepted, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(s.T(), s.store.Append(context.Background(),
		s.record(id.RegistrationID(uuid.New()), id.OutcomeExpired, base.Add(time.Hour))))

	records, err := s.store.ListRecentAccepted(context.Background(), 3)
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 3)
	for _, r := range records {
		assert.Equal(s.T(), id.OutcomeAccepted, r.Outcome)
	}
	assert.True(s.T(), records[0].At.After(records[1].At))
}

func TestInMemoryScanLogStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryScanLogStoreSuite))
}
