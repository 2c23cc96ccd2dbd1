package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"turnstile/internal/pass"
	"turnstile/internal/registration/models"
	regstore "turnstile/internal/registration/store/registration"
	rosterService "turnstile/internal/roster/service"
	eventstore "turnstile/internal/roster/store/event"
	studentstore "turnstile/internal/roster/store/student"
	id "turnstile/pkg/domain"
	dErrors "turnstile/pkg/domain-errors"
)

type RegistrationServiceSuite struct {
	suite.Suite
	store   *regstore.InMemoryRegistrationStore
	roster  *rosterService.Service
	service *Service

	studentID id.StudentID
	eventID   id.EventID
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.store = regstore.New()
	s.roster = rosterService.New(studentstore.New(), eventstore.New())
	s.service = New(s.store, s.roster)

	ctx := context.Background()
	student, err := s.roster.CreateStudent(ctx, "Ada Lovelace", "S-1001", "ada@example.edu")
	require.NoError(s.T(), err)
	s.studentID = student.ID

	now := time.Now().UTC()
	event, err := s.roster.CreateEvent(ctx, "Orientation", "Main Hall", now.Add(time.Hour), now.Add(3*time.Hour), 2)
	require.NoError(s.T(), err)
	s.eventID = event.ID
}

func (s *RegistrationServiceSuite) TestIssue() {
	reg, err := s.service.Issue(context.Background(), s.studentID, s.eventID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusIssued, reg.Status)
	assert.NotEmpty(s.T(), reg.Secret)

	found, err := s.service.Get(context.Background(), reg.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), reg.ID, found.ID)
}

func (s *RegistrationServiceSuite) TestIssueDuplicatePair() {
	_, err := s.service.Issue(context.Background(), s.studentID, s.eventID)
	require.NoError(s.T(), err)

	_, err = s.service.Issue(context.Background(), s.studentID, s.eventID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *RegistrationServiceSuite) TestIssueUnknownStudent() {
	_, err := s.service.Issue(context.Background(), id.StudentID(uuid.New()), s.eventID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RegistrationServiceSuite) TestIssueEventFull() {
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		student, err := s.roster.CreateStudent(ctx, "Student", uuid.NewString(), "s@example.edu")
		require.NoError(s.T(), err)
		_, err = s.service.Issue(ctx, student.ID, s.eventID)
		require.NoError(s.T(), err)
	}

	_, err := s.service.Issue(ctx, s.studentID, s.eventID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(s.T(), "event is full", dErrors.MessageOf(err))
}

func (s *RegistrationServiceSuite) TestVoid() {
	reg, err := s.service.Issue(context.Background(), s.studentID, s.eventID)
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.service.Void(context.Background(), reg.ID))

	found, err := s.service.Get(context.Background(), reg.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusVoid, found.Status)
}

func (s *RegistrationServiceSuite) TestVoidCheckedInRejected() {
	reg, err := s.service.Issue(context.Background(), s.studentID, s.eventID)
	require.NoError(s.T(), err)
	_, err = s.store.MarkCheckedIn(context.Background(), reg.ID, time.Now().UTC(), id.DeviceID(uuid.New()))
	require.NoError(s.T(), err)

	err = s.service.Void(context.Background(), reg.ID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))

	// The privileged path still works and keeps the check-in time.
	require.NoError(s.T(), s.service.OverrideVoid(context.Background(), reg.ID))
	found, err := s.service.Get(context.Background(), reg.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusVoid, found.Status)
	assert.NotNil(s.T(), found.CheckedInAt)
}

func (s *RegistrationServiceSuite) TestPassIsDeterministic() {
	reg, err := s.service.Issue(context.Background(), s.studentID, s.eventID)
	require.NoError(s.T(), err)

	first, err := s.service.Pass(context.Background(), reg.ID)
	require.NoError(s.T(), err)
	second, err := s.service.Pass(context.Background(), reg.ID)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), first.Artifact, second.Artifact)
	assert.Equal(s.T(), first.Sheet, second.Sheet)
	assert.True(s.T(), strings.Contains(first.Sheet, "Orientation"))
	assert.True(s.T(), strings.Contains(first.Sheet, "Ada Lovelace"))

	regID, _, err := pass.Decode(first.Artifact)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), reg.ID, regID)
}

func (s *RegistrationServiceSuite) TestPassVoidedRejected() {
	reg, err := s.service.Issue(context.Background(), s.studentID, s.eventID)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.service.Void(context.Background(), reg.ID))

	_, err = s.service.Pass(context.Background(), reg.ID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}
